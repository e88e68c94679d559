// ABOUTME: HTTP handlers for registration, login, token refresh and validation
// ABOUTME: Public routes except /auth/me, which requires a bearer token

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/2389/trellis/internal/auth"
)

// RefreshRequest is the JSON body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ValidateRequest is the JSON body for POST /auth/validate.
type ValidateRequest struct {
	Token string `json:"token"`
}

func (h *Handler) register(c *gin.Context) {
	var in auth.RegisterInput
	if !bind(c, &in) {
		return
	}
	sess, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, sess)
}

func (h *Handler) login(c *gin.Context) {
	var in auth.LoginInput
	if !bind(c, &in) {
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, sess)
}

func (h *Handler) refresh(c *gin.Context) {
	var in RefreshRequest
	if !bind(c, &in) {
		return
	}
	token, err := h.auth.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, gin.H{"accessToken": token})
}

func (h *Handler) validate(c *gin.Context) {
	var in ValidateRequest
	if !bind(c, &in) {
		return
	}
	h.ok(c, h.auth.Validate(c.Request.Context(), in.Token))
}

func (h *Handler) me(c *gin.Context) {
	h.ok(c, auth.CurrentUser(c))
}
