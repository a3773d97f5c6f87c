package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techhatch/techhatch-server/internal/auth"
)

// PasswordHandler serves the password reset endpoints.
type PasswordHandler struct {
	service *auth.Service
}

// NewPasswordHandler constructs a PasswordHandler.
func NewPasswordHandler(service *auth.Service) *PasswordHandler {
	return &PasswordHandler{service: service}
}

// forgotPasswordRequest defines the request body for starting a reset.
type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Forgot issues a password-reset OTP.
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var body forgotPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, errRequest := h.service.RequestPasswordReset(c.Request.Context(), body.Email)
	if errRequest != nil {
		writeError(c, errRequest)
		return
	}
	c.JSON(http.StatusOK, result)
}

// resetPasswordRequest defines the request body for completing a reset.
type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Otp         string `json:"otp" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// Reset consumes a password-reset OTP and stores the new credential.
func (h *PasswordHandler) Reset(c *gin.Context) {
	var body resetPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	if errReset := h.service.ResetPassword(c.Request.Context(), body.Email, body.Otp, body.NewPassword); errReset != nil {
		writeError(c, errReset)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "password reset successfully"})
}
