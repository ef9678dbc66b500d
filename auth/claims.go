package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims JWT 载荷
//
// 内嵌 jwt.RegisteredClaims 以支持 exp/sub/iss 等标准声明。
type Claims struct {
	jwt.RegisteredClaims

	Username string         `json:"uname,omitempty"`
	Roles    []string       `json:"roles,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// HasRole 判断是否拥有指定角色
func (c *Claims) HasRole(role string) bool {
	return c != nil && slices.Contains(c.Roles, role)
}
