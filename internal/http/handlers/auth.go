package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techhatch/techhatch-server/internal/auth"
	"github.com/techhatch/techhatch-server/internal/http/middleware"
)

// AuthHandler serves the register/login/me endpoints.
type AuthHandler struct {
	service *auth.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerRequest defines the request body for registration.
type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// Register stages a registration and sends a verification OTP.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, errRegister := h.service.Register(c.Request.Context(), body.Email, body.Password, body.Role)
	if errRegister != nil {
		writeError(c, errRegister)
		return
	}
	c.JSON(http.StatusOK, result)
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and sends a login OTP.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, errLogin := h.service.Login(c.Request.Context(), middleware.IdentityFrom(c), body.Email, body.Password)
	if errLogin != nil {
		writeError(c, errLogin)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Me returns the authenticated user's account summary.
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return
	}

	result, errCurrent := h.service.CurrentUser(c.Request.Context(), *identity)
	if errCurrent != nil {
		writeError(c, errCurrent)
		return
	}
	c.JSON(http.StatusOK, result)
}
