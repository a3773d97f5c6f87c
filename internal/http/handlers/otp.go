package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techhatch/techhatch-server/internal/auth"
	"github.com/techhatch/techhatch-server/internal/http/middleware"
	"github.com/techhatch/techhatch-server/internal/models"
)

// OtpHandler serves the OTP verification and resend endpoints.
type OtpHandler struct {
	service *auth.Service
}

// NewOtpHandler constructs an OtpHandler.
func NewOtpHandler(service *auth.Service) *OtpHandler {
	return &OtpHandler{service: service}
}

// verifyOtpRequest defines the request body for OTP verification.
type verifyOtpRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Otp     string `json:"otp" binding:"required,len=6"`
	Purpose string `json:"purpose" binding:"required"`
}

// VerifyRegistration consumes a registration OTP and creates the user.
func (h *OtpHandler) VerifyRegistration(c *gin.Context) {
	var body verifyOtpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	purpose, ok := models.ParsePurpose(body.Purpose)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid purpose"})
		return
	}

	result, errVerify := h.service.VerifyRegistration(c.Request.Context(), body.Email, body.Otp, purpose)
	if errVerify != nil {
		writeError(c, errVerify)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// VerifyLogin consumes a login OTP and issues the session token.
func (h *OtpHandler) VerifyLogin(c *gin.Context) {
	var body verifyOtpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	purpose, ok := models.ParsePurpose(body.Purpose)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid purpose"})
		return
	}

	result, errVerify := h.service.VerifyLogin(c.Request.Context(), middleware.IdentityFrom(c), body.Email, body.Otp, purpose)
	if errVerify != nil {
		writeError(c, errVerify)
		return
	}
	c.JSON(http.StatusOK, result)
}

// resendOtpRequest defines the request body for resending an OTP.
type resendOtpRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
}

// Resend issues a fresh OTP for an in-flight flow.
func (h *OtpHandler) Resend(c *gin.Context) {
	var body resendOtpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	purpose, ok := models.ParsePurpose(body.Purpose)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid purpose"})
		return
	}

	result, errResend := h.service.ResendOTP(c.Request.Context(), body.Email, purpose)
	if errResend != nil {
		writeError(c, errResend)
		return
	}
	c.JSON(http.StatusOK, result)
}
