package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"globesuggest/api/catalog"
	"globesuggest/api/models"
)

type Suggester interface {
	Suggest(ctx context.Context, q string) ([]models.SearchSuggestion, error)
}

type SearchHandlers struct {
	Catalog Suggester
}

func NewSearchHandlers(s Suggester) *SearchHandlers {
	return &SearchHandlers{Catalog: s}
}

// Suggest powers the home page autocomplete.
func (h *SearchHandlers) Suggest(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Catalog.Suggest(ctx, c.Query("q"))
	if err != nil {
		var se *catalog.StatusError
		if errors.As(err, &se) {
			log.Printf("Search upstream returned status %d for %s", se.Code, se.URL)
			c.JSON(se.Code, gin.H{
				"results": []models.SearchSuggestion{},
				"error":   fmt.Sprintf("Upstream search error (status %d).", se.Code),
			})
			return
		}
		log.Printf("Search upstream unreachable: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"results": []models.SearchSuggestion{},
			"error":   "Unable to reach product search service.",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
