package handler

import (
	"net/http"
	"time"

	"go-gin-event-management/internal/middleware"
	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/response"
	"go-gin-event-management/internal/service"

	"github.com/gin-gonic/gin"
)

// CookieOptions access token cookie 的設定
type CookieOptions struct {
	Name   string
	Secure bool
}

type UserHandler struct {
	service service.UserService
	cookie  CookieOptions
}

func NewUserHandler(service service.UserService, cookie CookieOptions) *UserHandler {
	if cookie.Name == "" {
		cookie.Name = "accessToken"
	}
	return &UserHandler{service: service, cookie: cookie}
}

// RegisterRoutes authLimit 套用在 register/login，避免暴力嘗試
func (h *UserHandler) RegisterRoutes(api *gin.RouterGroup, requireAuth, requireAdmin, authLimit gin.HandlerFunc) {
	users := api.Group("/users")
	{
		users.POST("/register", authLimit, h.Register)
		users.POST("/login", authLimit, h.Login)

		authed := users.Group("", requireAuth)
		authed.POST("/logout", h.Logout)
		authed.GET("/profile", h.Profile)
		authed.PATCH("/profile", h.UpdateProfile)
	}

	api.GET("/admin/users", requireAuth, requireAdmin, h.ListUsers)
}

type loginResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"access_token"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var req model.RegisterUserRequest
	if err := BindJson(c, &req); err != nil {
		h.handleError(c, err, "Register")
		return
	}
	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err, "Register")
		return
	}
	response.OK(c, http.StatusCreated, user, "User registered successfully")
}

func (h *UserHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := BindJson(c, &req); err != nil {
		h.handleError(c, err, "Login")
		return
	}
	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err, "Login")
		return
	}

	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	h.setCookie(c, result.AccessToken, maxAge)
	response.OK(c, http.StatusOK, loginResponse{User: result.User, AccessToken: result.AccessToken}, "User logged in successfully")
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), middleware.CurrentClaims(c)); err != nil {
		h.handleError(c, err, "Logout")
		return
	}
	h.setCookie(c, "", -1)
	response.OK(c, http.StatusOK, gin.H{}, "User logged out")
}

func (h *UserHandler) Profile(c *gin.Context) {
	response.OK(c, http.StatusOK, middleware.CurrentUser(c), "User profile fetched successfully")
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileParams
	if err := BindJson(c, &req); err != nil {
		h.handleError(c, err, "UpdateProfile")
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		h.handleError(c, err, "UpdateProfile")
		return
	}
	response.OK(c, http.StatusOK, user, "Profile updated successfully")
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "ListUsers")
		return
	}
	response.OK(c, http.StatusOK, users, "Users fetched successfully")
}

func (h *UserHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *UserHandler) handleError(c *gin.Context, err error, operation string) {
	handleError(c, err, "user_handler", operation)
}
