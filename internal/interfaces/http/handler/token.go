package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/token"
)

// TokenStatusProvider reports the state of the ad platform credential
type TokenStatusProvider interface {
	Status() token.Status
}

// TokenHandler exposes token lifecycle state without the secret itself
type TokenHandler struct {
	BaseHandler
	tokens TokenStatusProvider
}

// NewTokenHandler creates a new TokenHandler. tokens may be nil when the
// ad platform is not configured.
func NewTokenHandler(tokens TokenStatusProvider) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// GetStatus returns expiry and last refresh outcome
func (h *TokenHandler) GetStatus(c *gin.Context) {
	if h.tokens == nil {
		h.Success(c, token.Status{})
		return
	}
	h.Success(c, h.tokens.Status())
}
