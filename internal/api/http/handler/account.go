package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labops/fleetprov/internal/api/http/dto"
	"github.com/labops/fleetprov/internal/orchestrator"
)

// AccountService runs the provisioning pipeline for one request.
type AccountService interface {
	CreateAccount(ctx context.Context, fullName, email string) orchestrator.Result
}

type AccountHandler struct {
	service AccountService
}

func NewAccountHandler(service AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) Create(ctx *gin.Context) {
	var req dto.CreateAccountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.service.CreateAccount(ctx.Request.Context(), req.FullName, req.Email)

	body := dto.CreateAccountResponse{
		Status:   string(res.Status),
		Username: res.Username,
		Message:  res.Message,
	}

	switch res.Status {
	case orchestrator.StatusOK:
		ctx.JSON(http.StatusOK, body)
	case orchestrator.StatusRejected:
		ctx.JSON(http.StatusForbidden, body)
	case orchestrator.StatusConflict:
		ctx.JSON(http.StatusConflict, body)
	default:
		slog.Error("provisioning request failed", "username", res.Username, "message", res.Message)
		ctx.JSON(http.StatusInternalServerError, body)
	}
}
