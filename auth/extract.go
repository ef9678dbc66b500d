package auth

import (
	"net/http"
	"strings"

	"github.com/ceyewan/sinteflake/xerrors"
)

// extractor 从请求的某个位置读取 token，key 为头名、参数名或 cookie 名
type extractor func(a *jwtAuth, r *http.Request, key string) string

var extractors = map[string]extractor{
	"header": fromHeader,
	"query":  fromQuery,
	"cookie": fromCookie,
}

// 未配置 TokenLookup 时按此顺序尝试
var defaultLookups = []string{"header:Authorization", "query:token", "cookie:jwt"}

// ExtractToken 按 TokenLookup（形如 header:Authorization）读取 token
func (a *jwtAuth) ExtractToken(r *http.Request) (string, error) {
	lookups := defaultLookups
	if a.cfg.TokenLookup != "" {
		lookups = []string{a.cfg.TokenLookup}
	}
	for _, lookup := range lookups {
		source, key, ok := strings.Cut(lookup, ":")
		if !ok {
			continue
		}
		if fn, ok := extractors[source]; ok {
			if token := fn(a, r, key); token != "" {
				return token, nil
			}
		}
	}
	return "", xerrors.Wrap(ErrMissingToken, "no token in request")
}

// fromHeader 只接受 "<TokenHeadName> <token>" 形式
func fromHeader(a *jwtAuth, r *http.Request, key string) string {
	head, token, ok := strings.Cut(r.Header.Get(key), " ")
	if !ok || head != a.cfg.TokenHeadName {
		return ""
	}
	return strings.TrimSpace(token)
}

func fromQuery(_ *jwtAuth, r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

func fromCookie(_ *jwtAuth, r *http.Request, key string) string {
	c, err := r.Cookie(key)
	if err != nil {
		return ""
	}
	return c.Value
}
