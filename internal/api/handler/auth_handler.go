package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clinica-estetica/config"
	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/service"
	"clinica-estetica/pkg/response"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	authCfg *config.AuthConfig
}

// NewAuthHandler 创建 AuthHandler；authCfg 为 nil 时使用非安全 Cookie（测试环境）
func NewAuthHandler(authSvc service.AuthService, authCfg *config.AuthConfig) *AuthHandler {
	if authCfg == nil {
		authCfg = &config.AuthConfig{}
	}
	return &AuthHandler{authSvc: authSvc, authCfg: authCfg}
}

// Login 员工登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	// 记住我：持久 Cookie；否则为会话 Cookie
	maxAge := 0
	if req.RememberMe {
		maxAge = int(h.authCfg.RefreshTokenTTLRemember.Seconds())
	}
	h.setRefreshCookie(c, result.RefreshToken, maxAge)

	response.OK(c, result)
}

// RefreshToken 刷新 Token（优先读取 Body，其次读取 Cookie）
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		if cookie, err := c.Cookie(refreshCookieName); err == nil {
			token = cookie
		}
	}
	if token == "" {
		response.BadRequest(c, 10001, "缺少 Refresh Token")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), token)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, 0)
	response.OK(c, result)
}

// Logout 登出：Access Token 写入黑名单并清除 Refresh Cookie
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	jti, exp := getTokenMeta(c)
	if err := h.authSvc.Logout(c.Request.Context(), jti, exp, userID); err != nil {
		response.InternalError(c)
		return
	}

	h.setRefreshCookie(c, "", -1)
	response.OK(c, nil)
}

// GetCurrentUser 获取当前登录员工信息
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, user)
}

// ChangePassword 修改密码
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	cookieCfg := h.authCfg.Cookie
	c.SetSameSite(parseSameSite(cookieCfg.SameSite))
	c.SetCookie(refreshCookieName, value, maxAge, refreshCookiePath, cookieCfg.Domain, cookieCfg.Secure, true)
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// handleAuthError 统一处理认证模块业务错误
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, 11001, "用户名或密码错误")
	case errors.Is(err, service.ErrUserDisabled):
		response.Forbidden(c, 11002, "账号已停用")
	case errors.Is(err, service.ErrTokenInvalid):
		response.Unauthorized(c, 11003, "Token 无效或已过期")
	case errors.Is(err, service.ErrOldPasswordWrong):
		response.BadRequest(c, 11004, "原密码错误")
	case errors.Is(err, service.ErrWeakPassword):
		response.BadRequest(c, 11005, service.ErrWeakPassword.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, "用户不存在")
	default:
		response.InternalError(c)
	}
}
