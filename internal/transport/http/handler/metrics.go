package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/metrics"
	"pdfchat/internal/transport/http/response"
)

type MetricsHandler struct {
	aggregator *metrics.Aggregator
}

func NewMetricsHandler(aggregator *metrics.Aggregator) *MetricsHandler {
	return &MetricsHandler{aggregator: aggregator}
}

func (h *MetricsHandler) Stats(c *gin.Context) {
	f := metrics.Filter{
		Days:   queryInt(c, "days", 30),
		UserID: c.Query("user_id"),
	}
	stats, err := h.aggregator.Stats(c.Request.Context(), f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stats failed")
		return
	}
	response.OK(c, stats)
}

func (h *MetricsHandler) UserStats(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "user id is required")
		return
	}
	f := metrics.Filter{Days: queryInt(c, "days", 30), UserID: userID}
	stats, err := h.aggregator.Stats(c.Request.Context(), f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "user stats failed")
		return
	}
	response.OK(c, gin.H{"user_id": userID, "stats": stats})
}

func (h *MetricsHandler) TopUsers(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	f := metrics.Filter{Days: queryInt(c, "days", 30)}
	users, err := h.aggregator.TopUsers(c.Request.Context(), limit, f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "top users failed")
		return
	}
	response.OK(c, gin.H{"top_users": users, "limit": limit, "days": f.Days})
}

func (h *MetricsHandler) TopDocuments(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	f := metrics.Filter{Days: queryInt(c, "days", 30)}
	docs, err := h.aggregator.TopDocuments(c.Request.Context(), limit, f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "top documents failed")
		return
	}
	response.OK(c, gin.H{"top_documents": docs, "limit": limit, "days": f.Days})
}

func (h *MetricsHandler) Errors(c *gin.Context) {
	f := metrics.Filter{Days: queryInt(c, "days", 30)}
	breakdown, err := h.aggregator.ErrorBreakdown(c.Request.Context(), f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "error stats failed")
		return
	}
	response.OK(c, gin.H{"days": f.Days, "errors": breakdown})
}

func (h *MetricsHandler) TimeSeries(c *gin.Context) {
	f := metrics.Filter{
		Days:   queryInt(c, "days", 7),
		UserID: c.Query("user_id"),
	}
	series, err := h.aggregator.TimeSeries(c.Request.Context(), f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "time series failed")
		return
	}
	response.OK(c, gin.H{"days": f.Days, "user_id": f.UserID, "time_series": series})
}

// Export streams the selected event subset as csv or json.
func (h *MetricsHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", metrics.FormatJSON)
	kind := c.DefaultQuery("kind", metrics.KindQueries)
	f := metrics.Filter{
		Days:   queryInt(c, "days", 30),
		UserID: c.Query("user_id"),
	}

	payload, err := h.aggregator.Export(c.Request.Context(), format, kind, f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	filename := fmt.Sprintf("%s_metrics_%dd.%s", kind, f.Days, format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	contentType := "application/json"
	if format == metrics.FormatCSV {
		contentType = "text/csv"
	}
	c.Data(http.StatusOK, contentType, payload)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
