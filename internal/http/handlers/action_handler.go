package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/otp-auth/internal/http/handlers/common"
	"github.com/ignatzorin/otp-auth/internal/http/response"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
	"github.com/ignatzorin/otp-auth/internal/service"
	"github.com/ignatzorin/otp-auth/internal/validation"
)

// ActionHandler принимает действия аутентифицированных пользователей.
type ActionHandler struct {
	actions *service.ActionService
}

func NewActionHandler(actions *service.ActionService) *ActionHandler {
	return &ActionHandler{actions: actions}
}

type createActionRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// CreateAction обрабатывает POST /api/actions.
func (h *ActionHandler) CreateAction(c *gin.Context) {
	accountID, err := common.CurrentAccountID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req createActionRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	if err := validation.ValidateLength("type", req.Type, 1, validation.MaxActionTypeLen); err != nil {
		_ = c.Error(apperror.Validation(err.Error()))
		return
	}

	// Явный null в payload равносилен его отсутствию.
	payload := req.Payload
	if string(payload) == "null" {
		payload = nil
	}

	action, err := h.actions.CreateAction(c.Request.Context(), accountID, req.Type, payload)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Created(c, action)
}
