package catalog

import (
	"context"
	"strings"
	"unicode/utf8"

	"globesuggest/api/models"
)

const (
	minQueryLen    = 2
	maxQueryLen    = 120
	maxSuggestions = 6
)

// Suggest returns up to six autocomplete entries for q. Queries shorter
// than two characters return an empty list without calling upstream.
func (c *Client) Suggest(ctx context.Context, q string) ([]models.SearchSuggestion, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minQueryLen {
		return []models.SearchSuggestion{}, nil
	}
	if utf8.RuneCountInString(q) > maxQueryLen {
		q = string([]rune(q)[:maxQueryLen])
	}

	items, err := c.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]models.SearchSuggestion, 0, maxSuggestions)
	for _, item := range items {
		if len(out) == maxSuggestions {
			break
		}
		if item.IsZero() {
			continue
		}
		name := item.FirstStr("product_name", "product_title", "name")
		if name == "" {
			continue
		}
		pid := item.Str("product_id")
		s := item.FirstStr("product_slug", "slug")
		if s == "" {
			s = slugify(name)
			if pid != "" {
				s += "-" + pid
			}
		}
		if s == "" {
			continue
		}
		out = append(out, models.SearchSuggestion{
			ID:      pid,
			Slug:    s,
			Title:   name,
			Country: item.Str("country"),
			Image:   item.FirstStr("image", "image_url"),
		})
	}
	return out, nil
}
