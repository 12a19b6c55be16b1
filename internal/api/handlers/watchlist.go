package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wonny/stockwatch/internal/api/response"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	watchlistsvc "github.com/wonny/stockwatch/internal/service/watchlist"
)

// WatchlistService is the part of the watchlist manager the HTTP layer drives
type WatchlistService interface {
	View() *watchlistsvc.View
	IsSaved(stock watchlist.Stock) bool
	AddStock(ctx context.Context, stock watchlist.Stock) (watchlist.Stock, error)
	RemoveStock(ctx context.Context, stock watchlist.Stock) error
	RemoveAt(ctx context.Context, positions []int) error
	ToggleSaved(ctx context.Context, stock watchlist.Stock) (bool, error)
	Sort(ctx context.Context, by watchlist.SortCriterion) (*watchlistsvc.View, error)
	Filter(ctx context.Context, by watchlist.FilterCriterion) (*watchlistsvc.View, error)
	RefreshAllPrices(ctx context.Context) (watchlistsvc.RefreshResult, error)
	RefreshChanges(ctx context.Context, stock watchlist.Stock) (watchlist.Stock, error)
}

// StockRequest identifies a stock to add or toggle
type StockRequest struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol" binding:"required"`
	Name   string `json:"name"`
}

func (r StockRequest) stock() watchlist.Stock {
	name := r.Name
	if name == "" {
		name = r.Symbol
	}
	return watchlist.Stock{ID: r.ID, Symbol: r.Symbol, Name: name}
}

// RemoveRequest lists displayed positions to remove
type RemoveRequest struct {
	Positions []int `json:"positions" binding:"required,min=1"`
}

// CriterionRequest carries a sort or filter criterion
type CriterionRequest struct {
	Criterion string `json:"criterion"`
}

// ViewResponse is the watchlist as shown to the user
type ViewResponse struct {
	*watchlistsvc.View
	Subtitle string `json:"subtitle"`
}

// WatchlistHandler handles watchlist HTTP requests
type WatchlistHandler struct {
	svc WatchlistService
	now func() time.Time
}

// NewWatchlistHandler creates a new WatchlistHandler
func NewWatchlistHandler(svc WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{svc: svc, now: time.Now}
}

func (h *WatchlistHandler) viewResponse(v *watchlistsvc.View) ViewResponse {
	return ViewResponse{View: v, Subtitle: watchlistsvc.Subtitle(h.now())}
}

// Get handles GET /api/v1/watchlist[?sort=|?filter=]
// A sort or filter given in the query is applied before the view is returned.
func (h *WatchlistHandler) Get(c *gin.Context) {
	sortParam, hasSort := c.GetQuery("sort")
	filterParam, hasFilter := c.GetQuery("filter")

	if hasSort && hasFilter {
		response.BadRequest(c, "sort and filter cannot be combined")
		return
	}

	v := h.svc.View()
	switch {
	case hasSort:
		by, err := watchlist.ParseSortCriterion(sortParam)
		if err != nil {
			writeError(c, err)
			return
		}
		if v, err = h.svc.Sort(c.Request.Context(), by); err != nil {
			writeError(c, err)
			return
		}
	case hasFilter:
		by, err := watchlist.ParseFilterCriterion(filterParam)
		if err != nil {
			writeError(c, err)
			return
		}
		if v, err = h.svc.Filter(c.Request.Context(), by); err != nil {
			writeError(c, err)
			return
		}
	}

	response.SuccessList(c, h.viewResponse(v), len(v.Displayed))
}

// Add handles POST /api/v1/watchlist
func (h *WatchlistHandler) Add(c *gin.Context) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "symbol is required")
		return
	}

	added, err := h.svc.AddStock(c.Request.Context(), req.stock())
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, added, "Stock added to watchlist")
}

// Toggle handles POST /api/v1/watchlist/toggle
func (h *WatchlistHandler) Toggle(c *gin.Context) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "symbol is required")
		return
	}

	saved, err := h.svc.ToggleSaved(c.Request.Context(), req.stock())
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"symbol": req.Symbol, "saved": saved})
}

// IsSaved handles GET /api/v1/watchlist/saved/:symbol
func (h *WatchlistHandler) IsSaved(c *gin.Context) {
	symbol := c.Param("symbol")
	response.Success(c, gin.H{
		"symbol": symbol,
		"saved":  h.svc.IsSaved(watchlist.Stock{Symbol: symbol}),
	})
}

// Delete handles DELETE /api/v1/watchlist/:id
func (h *WatchlistHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	stock, ok := h.svc.View().FindByID(id)
	if !ok {
		stock = watchlist.Stock{ID: id}
	}

	if err := h.svc.RemoveStock(c.Request.Context(), stock); err != nil {
		writeError(c, err)
		return
	}

	response.NoContent(c)
}

// RemovePositions handles POST /api/v1/watchlist/remove
// Positions index the displayed list, so they follow the current sort or filter.
func (h *WatchlistHandler) RemovePositions(c *gin.Context) {
	var req RemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "positions are required")
		return
	}

	if err := h.svc.RemoveAt(c.Request.Context(), req.Positions); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, h.viewResponse(h.svc.View()))
}

// Sort handles PUT /api/v1/watchlist/sort
func (h *WatchlistHandler) Sort(c *gin.Context) {
	var req CriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	by, err := watchlist.ParseSortCriterion(req.Criterion)
	if err != nil {
		writeError(c, err)
		return
	}

	v, err := h.svc.Sort(c.Request.Context(), by)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, h.viewResponse(v))
}

// Filter handles PUT /api/v1/watchlist/filter
func (h *WatchlistHandler) Filter(c *gin.Context) {
	var req CriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	by, err := watchlist.ParseFilterCriterion(req.Criterion)
	if err != nil {
		writeError(c, err)
		return
	}

	v, err := h.svc.Filter(c.Request.Context(), by)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, h.viewResponse(v))
}

// Refresh handles POST /api/v1/watchlist/refresh
// Per-entry failures are counted in the result, not returned as an error.
func (h *WatchlistHandler) Refresh(c *gin.Context) {
	result, err := h.svc.RefreshAllPrices(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// RefreshChanges handles POST /api/v1/watchlist/:id/changes
func (h *WatchlistHandler) RefreshChanges(c *gin.Context) {
	stock, ok := h.svc.View().FindByID(c.Param("id"))
	if !ok {
		response.NotFound(c, watchlist.ErrStockNotFound.Error())
		return
	}

	updated, err := h.svc.RefreshChanges(c.Request.Context(), stock)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, updated)
}
