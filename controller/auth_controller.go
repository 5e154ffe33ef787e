package controller

import (
	"net/http"

	"scanndine/apperr"
	"scanndine/model"
	"scanndine/service"
	"scanndine/utils"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	auth *service.AuthService
}

func NewAuthController(auth *service.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

type registerRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
}

// Register ignores any approval flag in the body; approval follows the role.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, apperr.Validation("invalid request body"))
		return
	}

	res, err := ac.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.UserRole(req.Role),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "User registered", res)
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
}

func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil || req.Email == "" || req.Password == "" {
		utils.RespondError(c, apperr.Validation("email and password are required"))
		return
	}

	res, err := ac.auth.Login(c.Request.Context(), req.Email, req.Password, model.UserRole(req.Role))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Login successful", res)
}

func (ac *AuthController) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" form:"refreshToken"`
	}
	_ = c.ShouldBind(&req)

	access, err := ac.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Token refreshed", gin.H{"accessToken": access})
}

// Logout is stateless; the client drops its tokens.
func (ac *AuthController) Logout(c *gin.Context) {
	utils.Respond(c, http.StatusOK, "Logged out", nil)
}

func (ac *AuthController) CheckAdmin(c *gin.Context) {
	exists, err := ac.auth.AdminExists(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Admin check", gin.H{"adminExists": exists})
}
