package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/wonny/stockwatch/internal/api/response"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"github.com/wonny/stockwatch/internal/service/chart"
)

// HistoryService loads chart data for a symbol
type HistoryService interface {
	History(ctx context.Context, symbol string, r quote.ChartRange) (*chart.History, error)
}

// HistoryHandler serves the stock detail chart
type HistoryHandler struct {
	svc HistoryService
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(svc HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// Get handles GET /api/v1/history/:symbol?range=1mo
func (h *HistoryHandler) Get(c *gin.Context) {
	r, err := quote.ParseChartRange(c.DefaultQuery("range", string(quote.RangeOneMonth)))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	history, err := h.svc.History(c.Request.Context(), c.Param("symbol"), r)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessList(c, history, len(history.Contracts))
}

// Ranges handles GET /api/v1/history/ranges
func (h *HistoryHandler) Ranges(c *gin.Context) {
	type rangeItem struct {
		Code  quote.ChartRange `json:"code"`
		Title string           `json:"title"`
	}

	items := make([]rangeItem, 0, len(quote.AllRanges))
	for _, r := range quote.AllRanges {
		items = append(items, rangeItem{Code: r, Title: r.Title()})
	}

	response.SuccessList(c, items, len(items))
}
