package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"clinica-estetica/internal/service"
	"clinica-estetica/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// GetDoctorID 提取医生账号关联的 doctor_id，非医生账号为空串
func GetDoctorID(c *gin.Context) string {
	v, _ := c.Get("doctor_id")
	s, _ := v.(string)
	return s
}

// MustGetScope 组装调用者的访问范围
func MustGetScope(c *gin.Context) (service.AccessScope, bool) {
	role, ok := MustGetRole(c)
	if !ok {
		return service.AccessScope{}, false
	}
	return service.AccessScope{Role: role, DoctorID: GetDoctorID(c)}, true
}

// getTokenMeta 提取当前 Access Token 的 jti 与过期时间（登出时写黑名单）
func getTokenMeta(c *gin.Context) (string, time.Time) {
	jti, _ := c.Get("token_jti")
	exp, _ := c.Get("token_exp")
	jtiStr, _ := jti.(string)
	expTime, _ := exp.(time.Time)
	return jtiStr, expTime
}
