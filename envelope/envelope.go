// Package envelope decrypts the hybrid RSA-OAEP + AES-GCM telemetry
// envelopes posted by the browser collector.
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Algorithm is the alg tag the collector sends.
const Algorithm = "RSA-OAEP/AES-GCM"

var (
	// ErrMalformed means one of key, iv or data is missing.
	ErrMalformed = errors.New("envelope: malformed")
	// ErrNotConfigured means no private key was provided at startup.
	ErrNotConfigured = errors.New("envelope: private key not configured")
	// ErrDecrypt covers every other failure. The cause is deliberately not
	// wrapped.
	ErrDecrypt = errors.New("envelope: decryption failed")
)

// Envelope is the wire shape of an encrypted payload. All binary fields are
// base64.
type Envelope struct {
	Alg  string `json:"alg"`
	Key  string `json:"key"`
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// FromMap extracts an Envelope from a decoded JSON object. Non-string
// fields are treated as missing.
func FromMap(m map[string]any) Envelope {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return Envelope{Alg: str("alg"), Key: str("key"), IV: str("iv"), Data: str("data")}
}

func (e Envelope) complete() bool {
	return e.Key != "" && e.IV != "" && e.Data != ""
}

// Codec holds the process-wide private key. The zero value and a codec
// built from an empty PEM are valid and report ErrNotConfigured.
type Codec struct {
	key *rsa.PrivateKey
}

// New parses a PKCS#8 or PKCS#1 PEM private key. An empty string yields an
// unconfigured codec.
func New(privatePEM string) (*Codec, error) {
	privatePEM = normalisePEM(privatePEM)
	if privatePEM == "" {
		return &Codec{}, nil
	}
	key, err := ParsePrivateKey([]byte(privatePEM))
	if err != nil {
		return nil, err
	}
	return &Codec{key: key}, nil
}

func (c *Codec) Configured() bool {
	return c != nil && c.key != nil
}

// Decrypt unwraps the AES key with RSA-OAEP (SHA-256, MGF1-SHA-256),
// decrypts data with AES-GCM under iv and parses the plaintext as a JSON
// object.
func (c *Codec) Decrypt(e Envelope) (map[string]any, error) {
	if !e.complete() {
		return nil, ErrMalformed
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	wrapped, err1 := decodeB64(e.Key)
	iv, err2 := decodeB64(e.IV)
	ciphertext, err3 := decodeB64(e.Data)
	if err1 != nil || err2 != nil || err3 != nil || len(iv) == 0 {
		return nil, ErrDecrypt
	}

	aesKey, err := rsa.DecryptOAEP(sha256.New(), nil, c.key, wrapped, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	gcm, err := newGCM(aesKey, len(iv))
	if err != nil {
		return nil, ErrDecrypt
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	if !utf8.Valid(plaintext) {
		return nil, ErrDecrypt
	}

	out, ok := DecodeObject(plaintext)
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}

// DecodeObject parses data as exactly one JSON object, keeping numbers as
// json.Number. Trailing data after the object fails.
func DecodeObject(data []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return out, true
}

// Seal encrypts v for pub with a fresh AES-256 key and 12-byte nonce.
func Seal(pub *rsa.PublicKey, v any) (Envelope, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	return sealBytes(pub, plaintext)
}

func sealBytes(pub *rsa.PublicKey, plaintext []byte) (Envelope, error) {
	aesKey := make([]byte, 32)
	if _, err := rand.Read(aesKey); err != nil {
		return Envelope{}, fmt.Errorf("generate key: %w", err)
	}
	iv := make([]byte, 12)
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, fmt.Errorf("generate iv: %w", err)
	}

	gcm, err := newGCM(aesKey, len(iv))
	if err != nil {
		return Envelope{}, err
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, aesKey, nil)
	if err != nil {
		return Envelope{}, fmt.Errorf("wrap key: %w", err)
	}

	return Envelope{
		Alg:  Algorithm,
		Key:  base64.StdEncoding.EncodeToString(wrapped),
		IV:   base64.StdEncoding.EncodeToString(iv),
		Data: base64.StdEncoding.EncodeToString(gcm.Seal(nil, iv, plaintext, nil)),
	}, nil
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	if nonceSize == 12 {
		return cipher.NewGCM(block)
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

func decodeB64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// normalisePEM restores newlines in keys stored as a single-line
// environment value with literal \n sequences.
func normalisePEM(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && !strings.Contains(s, "\n") && strings.Contains(s, `\n`) {
		s = strings.ReplaceAll(s, `\n`, "\n")
	}
	return s
}

// ParsePrivateKey reads an RSA private key in PKCS#8 or PKCS#1 PEM form.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("envelope: no PEM block in private key")
	}
	if k, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("envelope: private key is not RSA")
		}
		return rk, nil
	}
	k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("envelope: parse private key: %w", err)
	}
	return k, nil
}

// ParsePublicKey reads an RSA public key in SPKI or PKCS#1 PEM form.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(normalisePEM(string(data))))
	if block == nil {
		return nil, errors.New("envelope: no PEM block in public key")
	}
	if k, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rk, ok := k.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("envelope: public key is not RSA")
		}
		return rk, nil
	}
	k, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("envelope: parse public key: %w", err)
	}
	return k, nil
}

// GenerateKeyPair returns a PKCS#8 private key and its SPKI public key, both
// PEM encoded.
func GenerateKeyPair(bits int) (privatePEM, publicPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}
