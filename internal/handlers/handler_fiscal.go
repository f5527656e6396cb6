package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/fiscal_ledger/internal/core/ports/services"
	"github.com/SscSPs/fiscal_ledger/internal/dto"
	"github.com/SscSPs/fiscal_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader carries the caller's idempotency key on allocation and posting requests.
const IdempotencyKeyHeader = "Idempotency-Key"

// fiscalHandler handles HTTP requests for fiscal series and number allocation.
type fiscalHandler struct {
	fiscalService portssvc.FiscalSequenceSvcFacade
}

func newFiscalHandler(fs portssvc.FiscalSequenceSvcFacade) *fiscalHandler {
	return &fiscalHandler{fiscalService: fs}
}

// RegisterFiscalRoutes registers the fiscal series and allocation routes.
func RegisterFiscalRoutes(rg *gin.RouterGroup, fiscalService portssvc.FiscalSequenceSvcFacade) {
	RegisterValidators()
	h := newFiscalHandler(fiscalService)

	fiscal := rg.Group("/fiscal")
	{
		series := fiscal.Group("/series")
		series.POST("", h.registerSeries)
		series.GET("", h.listSeries)
		series.GET("/:seriesID", h.getSeries)
		series.POST("/:seriesID/retire", h.retireSeries)
		series.POST("/:seriesID/activate", h.activateSeries)

		allocations := fiscal.Group("/allocations")
		allocations.POST("", h.allocate)
		allocations.GET("", h.getAllocationByKey)
		allocations.GET("/:fiscalNumber", h.getAllocationByNumber)
	}
}

// allocate godoc
// @Summary Allocate a fiscal number
// @Description Issues the next NCF / e-CF of the active series for a document type. Repeating an Idempotency-Key returns the first allocation.
// @Tags fiscal
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body dto.AllocateRequest true "Document type"
// @Success 201 {object} dto.AllocationResponse
// @Failure 400 {object} ErrorResponse "Invalid document type"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 409 {object} ErrorResponse "No active series, range exhausted, series expired or transaction conflict"
// @Failure 500 {object} ErrorResponse "Failed to allocate fiscal number"
// @Security BearerAuth
// @Router /fiscal/allocations [post]
func (h *fiscalHandler) allocate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var req dto.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "allocation request")
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	logger.Info("Received request to allocate fiscal number", slog.String("document_type", string(req.DocumentType)))

	allocation, err := h.fiscalService.Allocate(c.Request.Context(), req, userID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to allocate fiscal number")
		return
	}

	c.JSON(http.StatusCreated, dto.ToAllocationResponse(allocation))
}

// getAllocationByKey godoc
// @Summary Find an allocation by idempotency key
// @Tags fiscal
// @Produce json
// @Param idempotencyKey query string true "Idempotency key used at allocation time"
// @Success 200 {object} dto.AllocationResponse
// @Failure 400 {object} ErrorResponse "Missing idempotency key"
// @Failure 404 {object} ErrorResponse "Allocation not found"
// @Security BearerAuth
// @Router /fiscal/allocations [get]
func (h *fiscalHandler) getAllocationByKey(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUserID(c, logger); !ok {
		return
	}

	var params dto.GetAllocationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "query parameters")
		return
	}

	allocation, err := h.fiscalService.GetAllocationByKey(c.Request.Context(), params.IdempotencyKey)
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve allocation")
		return
	}
	c.JSON(http.StatusOK, dto.ToAllocationResponse(allocation))
}

// getAllocationByNumber godoc
// @Summary Find an allocation by fiscal number
// @Tags fiscal
// @Produce json
// @Param fiscalNumber path string true "Fiscal number, e.g. B0100000001"
// @Success 200 {object} dto.AllocationResponse
// @Failure 404 {object} ErrorResponse "Allocation not found"
// @Security BearerAuth
// @Router /fiscal/allocations/{fiscalNumber} [get]
func (h *fiscalHandler) getAllocationByNumber(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUserID(c, logger); !ok {
		return
	}

	allocation, err := h.fiscalService.GetAllocationByNumber(c.Request.Context(), c.Param("fiscalNumber"))
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve allocation")
		return
	}
	c.JSON(http.StatusOK, dto.ToAllocationResponse(allocation))
}

// registerSeries godoc
// @Summary Register a fiscal series
// @Description Records a range authorised by DGII. It becomes ACTIVE unless another series of the same type already is.
// @Tags fiscal
// @Accept json
// @Produce json
// @Param series body dto.RegisterSeriesRequest true "Series definition"
// @Success 201 {object} dto.SeriesResponse
// @Failure 400 {object} ErrorResponse "Invalid series definition"
// @Failure 409 {object} ErrorResponse "Range overlaps an existing series"
// @Security BearerAuth
// @Router /fiscal/series [post]
func (h *fiscalHandler) registerSeries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var req dto.RegisterSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "series definition")
		return
	}

	series, err := h.fiscalService.RegisterSeries(c.Request.Context(), req, userID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to register fiscal series")
		return
	}
	c.JSON(http.StatusCreated, dto.ToSeriesResponse(series))
}

// listSeries godoc
// @Summary List fiscal series
// @Tags fiscal
// @Produce json
// @Param documentType query string false "Document type, e.g. B01"
// @Param status query string false "ACTIVE, INACTIVE or EXPIRED"
// @Success 200 {object} dto.ListSeriesResponse
// @Failure 400 {object} ErrorResponse "Invalid filter"
// @Security BearerAuth
// @Router /fiscal/series [get]
func (h *fiscalHandler) listSeries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUserID(c, logger); !ok {
		return
	}

	var params dto.ListSeriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "query parameters")
		return
	}

	series, err := h.fiscalService.ListSeries(c.Request.Context(), params)
	if err != nil {
		respondWithError(c, logger, err, "Failed to list fiscal series")
		return
	}
	c.JSON(http.StatusOK, dto.ToListSeriesResponse(series))
}

// getSeries godoc
// @Summary Get a fiscal series
// @Tags fiscal
// @Produce json
// @Param seriesID path string true "Series ID"
// @Success 200 {object} dto.SeriesResponse
// @Failure 404 {object} ErrorResponse "Series not found"
// @Security BearerAuth
// @Router /fiscal/series/{seriesID} [get]
func (h *fiscalHandler) getSeries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUserID(c, logger); !ok {
		return
	}

	series, err := h.fiscalService.GetSeries(c.Request.Context(), c.Param("seriesID"))
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve fiscal series")
		return
	}
	c.JSON(http.StatusOK, dto.ToSeriesResponse(series))
}

// retireSeries godoc
// @Summary Retire a fiscal series
// @Description Moves an ACTIVE series to INACTIVE. Issued numbers stay valid.
// @Tags fiscal
// @Produce json
// @Param seriesID path string true "Series ID"
// @Success 200 {object} dto.SeriesResponse
// @Failure 404 {object} ErrorResponse "Series not found"
// @Failure 409 {object} ErrorResponse "Series is not ACTIVE"
// @Security BearerAuth
// @Router /fiscal/series/{seriesID}/retire [post]
func (h *fiscalHandler) retireSeries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	series, err := h.fiscalService.RetireSeries(c.Request.Context(), c.Param("seriesID"), userID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to retire fiscal series")
		return
	}
	c.JSON(http.StatusOK, dto.ToSeriesResponse(series))
}

// activateSeries godoc
// @Summary Activate a fiscal series
// @Description Moves an INACTIVE series back to ACTIVE when no other series of its type is active.
// @Tags fiscal
// @Produce json
// @Param seriesID path string true "Series ID"
// @Success 200 {object} dto.SeriesResponse
// @Failure 404 {object} ErrorResponse "Series not found"
// @Failure 409 {object} ErrorResponse "Series expired, exhausted, or another series is active"
// @Security BearerAuth
// @Router /fiscal/series/{seriesID}/activate [post]
func (h *fiscalHandler) activateSeries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	series, err := h.fiscalService.ActivateSeries(c.Request.Context(), c.Param("seriesID"), userID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to activate fiscal series")
		return
	}
	c.JSON(http.StatusOK, dto.ToSeriesResponse(series))
}
