package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"globesuggest/api/envelope"
)

const (
	privateKeyFile = "local_analytics_private.pem"
	publicKeyFile  = "local_analytics_public.pem"
)

func newKeygenCmd() *cobra.Command {
	var (
		outDir string
		bits   int
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the RSA key pair used for local analytics envelopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bits < 2048 {
				return fmt.Errorf("--bits must be at least 2048, got %d", bits)
			}
			priv, pub, err := envelope.GenerateKeyPair(bits)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", outDir, err)
			}
			privPath := filepath.Join(outDir, privateKeyFile)
			pubPath := filepath.Join(outDir, publicKeyFile)
			if err := os.WriteFile(privPath, priv, 0o600); err != nil {
				return fmt.Errorf("write private key: %w", err)
			}
			if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
				return fmt.Errorf("write public key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nwrote %s\n", privPath, pubPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the PEM files to")
	cmd.Flags().IntVar(&bits, "bits", 2048, "RSA modulus size")
	return cmd
}

func newSealCmd() *cobra.Command {
	var pubPath string
	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Encrypt a JSON snapshot from stdin into an ingest envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			pemData, err := os.ReadFile(pubPath)
			if err != nil {
				return fmt.Errorf("read public key: %w", err)
			}
			pub, err := envelope.ParsePublicKey(pemData)
			if err != nil {
				return err
			}
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			var payload map[string]any
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("stdin must be a JSON object: %w", err)
			}
			env, err := envelope.Seal(pub, payload)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(env)
		},
	}
	cmd.Flags().StringVar(&pubPath, "pub", publicKeyFile, "Public key PEM to encrypt for")
	return cmd
}
