package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/labops/fleetprov/internal/api/http/dto"
	"github.com/labops/fleetprov/internal/audit"
)

const defaultRecordLimit = 50

// RecordsHandler exposes the audit trail to operators. The credential hash
// column deliberately never leaves the store.
type RecordsHandler struct {
	recorder audit.Recorder
}

func NewRecordsHandler(recorder audit.Recorder) *RecordsHandler {
	return &RecordsHandler{recorder: recorder}
}

func (h *RecordsHandler) List(ctx *gin.Context) {
	limit := defaultRecordLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := h.recorder.Recent(ctx.Request.Context(), limit)
	if err != nil {
		slog.Error("Failed to list audit records", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit records"})
		return
	}

	infos := make([]dto.AuditRecordInfo, len(records))
	for i, rec := range records {
		infos[i] = dto.AuditRecordInfo{
			ID:        rec.ID,
			Timestamp: rec.Timestamp,
			FullName:  rec.FullName,
			Email:     rec.Email,
			Username:  rec.Username,
			Verdict:   rec.Verdict,
			Message:   rec.Message,
		}
	}

	ctx.JSON(http.StatusOK, dto.ListRecordsResponse{Records: infos, Count: len(infos)})
}
