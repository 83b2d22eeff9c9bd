package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"globesuggest/api/catalog"
	"globesuggest/api/schema"
)

// ProductFetcher resolves a page identifier to a normalised product.
type ProductFetcher interface {
	Fetch(ctx context.Context, identifier string) (schema.Product, error)
}

type ProductHandlers struct {
	Catalog   ProductFetcher
	MediaBase string
}

func NewProductHandlers(fetcher ProductFetcher, mediaBase string) *ProductHandlers {
	return &ProductHandlers{Catalog: fetcher, MediaBase: mediaBase}
}

// productPath is the public page route for a product.
func productPath(identifier string) string {
	return "/" + url.PathEscape(identifier) + "/"
}

// BlogPath is the public page route for a product's blog post. index is
// 1-based.
func BlogPath(productID string, index int) (string, error) {
	if productID == "" {
		return "", errors.New("blog route needs a product id")
	}
	if index < 1 {
		return "", errors.New("blog index is 1-based")
	}
	return productPath(productID) + "blog/" + strconv.Itoa(index) + "/", nil
}

func (h *ProductHandlers) site(c *gin.Context, identifier string) schema.Site {
	origin := requestOrigin(c)
	return schema.Site{
		PageURL:   origin + productPath(identifier),
		Origin:    origin,
		MediaBase: h.MediaBase,
		BlogURL:   BlogPath,
	}
}

// fetch loads the product for the :identifier route parameter, writing the
// error response itself when it fails.
func (h *ProductHandlers) fetch(c *gin.Context) (schema.Product, string, bool) {
	identifier := c.Param("identifier")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	product, err := h.Catalog.Fetch(ctx, identifier)
	switch {
	case err == nil:
		return product, identifier, true
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	default:
		log.Printf("Error fetching product %q: %v", identifier, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to load product at this time"})
	}
	return schema.Product{}, identifier, false
}

// GetProduct returns the normalised product with its JSON-LD graph.
func (h *ProductHandlers) GetProduct(c *gin.Context) {
	product, identifier, ok := h.fetch(c)
	if !ok {
		return
	}
	graph := schema.Build(h.site(c, identifier), product)
	c.JSON(http.StatusOK, gin.H{
		"product": product,
		"schema":  graph,
	})
}

// GetSchema returns only the JSON-LD document.
func (h *ProductHandlers) GetSchema(c *gin.Context) {
	product, identifier, ok := h.fetch(c)
	if !ok {
		return
	}
	body, err := json.Marshal(schema.Build(h.site(c, identifier), product))
	if err != nil {
		log.Printf("Error encoding schema for %q: %v", identifier, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode schema"})
		return
	}
	c.Data(http.StatusOK, "application/ld+json; charset=utf-8", body)
}

// GetBlog returns one entry of the product's blog_posts by 1-based index.
func (h *ProductHandlers) GetBlog(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
		return
	}
	product, _, ok := h.fetch(c)
	if !ok {
		return
	}
	posts := product.List("blog_posts")
	if index < 1 || index > len(posts) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Blog not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":    product,
		"blog":       posts[index-1],
		"blog_index": index,
	})
}
