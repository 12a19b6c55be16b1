package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/wonny/stockwatch/internal/api/response"
	"github.com/wonny/stockwatch/internal/domain/quote"
)

// Searcher resolves a free-text query to symbols
type Searcher interface {
	Search(ctx context.Context, query string) ([]quote.SymbolMatch, error)
}

// SearchHandler handles symbol search requests
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search handles GET /api/v1/search?q=
func (h *SearchHandler) Search(c *gin.Context) {
	matches, err := h.searcher.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessList(c, matches, len(matches))
}
