package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinMiddleware 校验 Token 并把 Claims 存入 Context
func (a *jwtAuth) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := a.ExtractToken(c.Request)
		if err != nil {
			// Token 缺失不计入验证失败指标
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := a.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRoles 要求同时拥有所有指定角色，必须放在 GinMiddleware 之后
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, required := range roles {
			if !claims.HasRole(required) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: missing role " + required})
				return
			}
		}
		c.Next()
	}
}

// GetClaims 从 Gin Context 获取 Claims
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
