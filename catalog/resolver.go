package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"globesuggest/api/schema"
)

// idLike matches identifiers that should be treated as upstream IDs before
// any slug lookup is attempted.
var idLike = regexp.MustCompile(`^[0-9a-fA-F-]{20,64}$`)

// Upstream is the subset of Client the Resolver needs.
type Upstream interface {
	Search(ctx context.Context, q string) ([]schema.Product, error)
	Product(ctx context.Context, id string) (schema.Product, error)
}

// Resolver maps page identifiers (upstream IDs or slugs) to products.
// Successful slug lookups are cached; failures are not.
type Resolver struct {
	upstream Upstream
	cache    *expirable.LRU[string, string]
}

// NewResolver builds a Resolver. A cacheSize of zero disables the slug
// cache.
func NewResolver(upstream Upstream, cacheSize int, ttl time.Duration) *Resolver {
	r := &Resolver{upstream: upstream}
	if cacheSize > 0 {
		r.cache = expirable.NewLRU[string, string](cacheSize, nil, ttl)
	}
	return r
}

// Resolve returns the upstream product ID for identifier.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (string, error) {
	id, _, err := r.resolve(ctx, identifier)
	return id, err
}

// Fetch resolves identifier and returns the normalised product record.
func (r *Resolver) Fetch(ctx context.Context, identifier string) (schema.Product, error) {
	identifier = strings.TrimSpace(identifier)
	id, product, err := r.resolve(ctx, identifier)
	if err != nil {
		return schema.Product{}, err
	}
	if product.IsZero() {
		product, err = r.upstream.Product(ctx, id)
		if err != nil {
			if IsStatus(err, http.StatusNotFound) {
				r.forget(identifier)
				return schema.Product{}, ErrNotFound
			}
			return schema.Product{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return schema.Normalize(product, identifier), nil
}

// resolve returns the product as well when the direct-ID path already
// fetched it.
func (r *Resolver) resolve(ctx context.Context, identifier string) (string, schema.Product, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", schema.Product{}, ErrNotFound
	}

	if idLike.MatchString(identifier) {
		p, err := r.upstream.Product(ctx, identifier)
		switch {
		case err == nil:
			return identifier, p, nil
		case IsStatus(err, http.StatusNotFound):
			// IDs and slugs share the URL space; fall through to slug lookup.
		default:
			return "", schema.Product{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	id, err := r.resolveSlug(ctx, identifier)
	if err != nil {
		return "", schema.Product{}, err
	}
	return id, schema.Product{}, nil
}

func (r *Resolver) resolveSlug(ctx context.Context, raw string) (string, error) {
	s := strings.Trim(strings.TrimSpace(raw), "/")
	target := slugify(s)
	if target == "" {
		target = s
	}
	if target == "" {
		return "", ErrNotFound
	}

	if r.cache != nil {
		if id, ok := r.cache.Get(target); ok {
			return id, nil
		}
	}

	for _, q := range searchCandidates(s) {
		items, err := r.upstream.Search(ctx, q)
		if err != nil {
			log.Printf("catalog: search %q failed: %v", q, err)
			continue
		}
		if id := matchItems(items, target); id != "" {
			if r.cache != nil {
				r.cache.Add(target, id)
			}
			return id, nil
		}
	}
	return "", ErrNotFound
}

func (r *Resolver) forget(identifier string) {
	if r.cache == nil {
		return
	}
	s := strings.Trim(identifier, "/")
	if target := slugify(s); target != "" {
		r.cache.Remove(target)
	}
	r.cache.Remove(s)
}

// searchCandidates lists the search phrases tried for a slug: the slug
// itself, the slug with hyphens as spaces, the first two words and the first
// word.
func searchCandidates(s string) []string {
	phrase := strings.TrimSpace(strings.ReplaceAll(s, "-", " "))
	words := strings.Fields(phrase)

	raw := []string{s}
	if phrase != s {
		raw = append(raw, phrase)
	}
	if len(words) >= 2 {
		raw = append(raw, words[0]+" "+words[1])
	}
	if len(words) >= 1 {
		raw = append(raw, words[0])
	}

	var out []string
	seen := make(map[string]struct{})
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// matchItems picks the item whose slug equals target. When nothing matches
// and the search returned a single object, that item is taken.
func matchItems(items []schema.Product, target string) string {
	for _, item := range items {
		if item.IsZero() {
			continue
		}
		raw := item.FirstStr("product_slug", "slug")
		itemSlug := slugify(raw)
		if itemSlug == "" {
			itemSlug = raw
		}
		if itemSlug != "" && itemSlug == target {
			if id := item.FirstStr("product_id", "id"); id != "" {
				return id
			}
		}
	}
	if len(items) == 1 && !items[0].IsZero() {
		return items[0].FirstStr("product_id", "id")
	}
	return ""
}

// IsNotFound reports whether err means the product does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
