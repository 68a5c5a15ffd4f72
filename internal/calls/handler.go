package calls

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/cdr-radar/pkg/common"
	"github.com/richxcame/cdr-radar/pkg/middleware"
)

// maxBatchBytes caps POST /api/calls/detect bodies
const maxBatchBytes = 32 << 20

// Handler handles HTTP requests for suspicious call detection
type Handler struct {
	service      DetectionService
	h3Resolution int
}

// NewHandler creates a new detection handler
func NewHandler(service DetectionService, h3Resolution int) *Handler {
	return &Handler{service: service, h3Resolution: h3Resolution}
}

// GetSuspiciousCalls returns the suspicious callers of the current batch
// GET /api/calls
func (h *Handler) GetSuspiciousCalls(c *gin.Context) {
	report, err := h.service.Detect(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	common.SuccessResponse(c, report.Suspicious)
}

// GetRankedCalls returns suspicious callers with their risk level
// GET /api/calls/ranked
func (h *Handler) GetRankedCalls(c *gin.Context) {
	report, err := h.service.Detect(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	common.SuccessResponse(c, Rank(report.Suspicious, h.service.Policy()))
}

// GetReport returns the full report of the current batch
// GET /api/calls/report
func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.service.Detect(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	common.SuccessResponse(c, report)
}

// GetSummary returns the headline counts
// GET /api/calls/summary
func (h *Handler) GetSummary(c *gin.Context) {
	report, err := h.service.Detect(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	common.SuccessResponse(c, report.Summary)
}

// GetCountries returns suspicious call totals per country
// GET /api/calls/countries
func (h *Handler) GetCountries(c *gin.Context) {
	report, err := h.service.Detect(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	common.SuccessResponse(c, report.Countries)
}

// GetCriticalAlerts returns callers in the CRITICAL tier
// GET /api/calls/alerts
func (h *Handler) GetCriticalAlerts(c *gin.Context) {
	report, err := h.service.Detect(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	common.SuccessResponse(c, CriticalAlerts(report.Suspicious, h.service.Policy()))
}

// GetCells returns suspicious callers bucketed into H3 cells
// GET /api/calls/cells?resolution=4
func (h *Handler) GetCells(c *gin.Context) {
	resolution := h.h3Resolution
	if raw := c.Query("resolution"); raw != "" {
		r, err := strconv.Atoi(raw)
		if err != nil || r < 0 || r > 15 {
			common.AppErrorResponse(c, common.NewBadRequestError("resolution must be an integer between 0 and 15", err))
			return
		}
		resolution = r
	}

	cells, err := h.service.Cells(c.Request.Context(), resolution)
	if err != nil {
		h.handleError(c, err)
		return
	}

	common.SuccessResponse(c, cells)
}

// DetectBatch analyses the batch posted in the request body
// POST /api/calls/detect
func (h *Handler) DetectBatch(c *gin.Context) {
	records, err := DecodeRecords(c.Request.Body)
	if err != nil {
		h.handleError(c, err)
		return
	}

	report, err := h.service.DetectBatch(c.Request.Context(), records)
	if err != nil {
		h.handleError(c, err)
		return
	}

	common.SuccessResponse(c, report.Suspicious)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	var dfe *DataFormatError
	var appErr *common.AppError
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		appErr = common.NewNotFoundError("call record source not found", err)
	case errors.As(err, &dfe):
		appErr = common.NewUnprocessableError(dfe.Error(), err)
	default:
		appErr = common.NewInternalError("internal server error", err)
	}

	common.AppErrorResponse(c, appErr)
}

// RegisterRoutes registers detection routes. Every route is bounded by requestTimeout.
func (h *Handler) RegisterRoutes(r *gin.Engine, requestTimeout time.Duration) {
	api := r.Group("/api/calls")
	api.Use(timeout.New(
		timeout.WithTimeout(requestTimeout),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusGatewayTimeout, "detection timed out")
		}),
	))
	{
		api.GET("", h.GetSuspiciousCalls)
		api.GET("/ranked", h.GetRankedCalls)
		api.GET("/report", h.GetReport)
		api.GET("/summary", h.GetSummary)
		api.GET("/countries", h.GetCountries)
		api.GET("/alerts", h.GetCriticalAlerts)
		api.GET("/cells", h.GetCells)
		api.POST("/detect", middleware.ValidateJSONContentType(), middleware.MaxBodySize(maxBatchBytes), h.DetectBatch)
	}
}
