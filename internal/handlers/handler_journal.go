package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/fiscal_ledger/internal/core/ports/services"
	"github.com/SscSPs/fiscal_ledger/internal/dto"
	"github.com/SscSPs/fiscal_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// journalHandler handles posting, reversal and lookup of journal entries.
type journalHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

func newJournalHandler(ls portssvc.LedgerSvcFacade) *journalHandler {
	return &journalHandler{ledgerService: ls}
}

// RegisterJournalRoutes registers routes related to journal entries.
func RegisterJournalRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newJournalHandler(ledgerService)

	entries := rg.Group("/journal-entries")
	{
		entries.POST("", h.postEntry)
		entries.GET("", h.listEntries)
		entries.GET("/:entryID", h.getEntry)
		entries.POST("/:entryID/reverse", h.reverseEntry)
	}
}

// postEntry godoc
// @Summary Post a journal entry
// @Description Validates a balanced entry and posts it atomically, updating the balance of every affected account. Repeating an Idempotency-Key returns the first posting.
// @Tags journal
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Idempotency key"
// @Param entry body dto.PostEntryRequest true "Journal entry"
// @Success 201 {object} dto.PostingResponse
// @Failure 400 {object} ErrorResponse "Validation error, unbalanced entry or invalid account"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 409 {object} ErrorResponse "Transaction conflict, retry the request"
// @Failure 500 {object} ErrorResponse "Failed to post journal entry"
// @Security BearerAuth
// @Router /journal-entries [post]
func (h *journalHandler) postEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}

	var req dto.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "journal entry")
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	logger.Info("Received request to post journal entry", slog.Int("line_count", len(req.Lines)))

	result, err := h.ledgerService.PostEntry(c.Request.Context(), req, userID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to post journal entry")
		return
	}
	c.JSON(http.StatusCreated, dto.ToPostingResponse(result))
}

// reverseEntry godoc
// @Summary Reverse a journal entry
// @Description Posts the mirror image of a POSTED entry and marks the original REVERSED
// @Tags journal
// @Accept json
// @Produce json
// @Param entryID path string true "Entry ID"
// @Param reversal body dto.ReverseEntryRequest false "Optional date and description overrides"
// @Success 201 {object} dto.PostingResponse
// @Failure 400 {object} ErrorResponse "Entry cannot be reversed"
// @Failure 404 {object} ErrorResponse "Entry not found"
// @Failure 409 {object} ErrorResponse "Entry already reversed"
// @Security BearerAuth
// @Router /journal-entries/{entryID}/reverse [post]
func (h *journalHandler) reverseEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUserID(c, logger)
	if !ok {
		return
	}
	entryID := c.Param("entryID")

	var req dto.ReverseEntryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, logger, err, "reversal request")
			return
		}
	}

	result, err := h.ledgerService.ReverseEntry(c.Request.Context(), entryID, req, userID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to reverse journal entry")
		return
	}
	c.JSON(http.StatusCreated, dto.ToPostingResponse(result))
}

// getEntry godoc
// @Summary Get a journal entry
// @Tags journal
// @Produce json
// @Param entryID path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 404 {object} ErrorResponse "Entry not found"
// @Security BearerAuth
// @Router /journal-entries/{entryID} [get]
func (h *journalHandler) getEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUserID(c, logger); !ok {
		return
	}

	entry, err := h.ledgerService.GetEntry(c.Request.Context(), c.Param("entryID"))
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve journal entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// listEntries godoc
// @Summary List journal entries
// @Description Lists entries by entry date, oldest first, with token pagination
// @Tags journal
// @Produce json
// @Param from query string false "First entry date (YYYY-MM-DD)"
// @Param to query string false "Last entry date (YYYY-MM-DD)"
// @Param limit query int false "Page size" default(20)
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} ErrorResponse "Invalid query parameters"
// @Security BearerAuth
// @Router /journal-entries [get]
func (h *journalHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUserID(c, logger); !ok {
		return
	}

	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err, "query parameters")
		return
	}

	entries, nextToken, err := h.ledgerService.ListEntries(c.Request.Context(), params)
	if err != nil {
		respondWithError(c, logger, err, "Failed to list journal entries")
		return
	}

	resp := dto.ListEntriesResponse{
		Entries:   make([]dto.JournalEntryResponse, len(entries)),
		NextToken: nextToken,
	}
	for i, e := range entries {
		resp.Entries[i] = dto.ToJournalEntryResponse(&e)
	}
	c.JSON(http.StatusOK, resp)
}
