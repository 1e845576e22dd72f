package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
)

// AccountHandler serves the YouTube credential routes.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler creates a new AccountHandler instance.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// TokenInfo handles GET /api/account.
func (h *AccountHandler) TokenInfo(c *gin.Context) {
	raw, err := h.accounts.TokenInfo(c.Request.Context())
	if err != nil {
		handleError(c, err, "")
		return
	}
	relay(c, raw)
}

// Apply handles POST /api/account.
func (h *AccountHandler) Apply(c *gin.Context) {
	var req models.AccountActionRequest
	if !bindJSON(c, &req) {
		return
	}

	raw, err := h.accounts.Apply(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err, "")
		return
	}
	relay(c, raw)
}

// List handles GET /api/accounts.
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.Accounts()
	if err != nil {
		handleError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"accounts": accounts,
	})
}
