package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/metrics"
)

const testSecret = "this-is-a-valid-secret-key-at-least-32-chars"

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{name: "nil 配置", cfg: nil, wantErr: ErrInvalidConfig},
		{name: "空密钥", cfg: &Config{}, wantErr: ErrInvalidConfig},
		{name: "密钥过短", cfg: &Config{SecretKey: "short"}, wantErr: ErrInvalidConfig},
		{name: "非 HMAC 签名算法", cfg: &Config{SecretKey: testSecret, SigningMethod: "RS256"}, wantErr: ErrInvalidConfig},
		{name: "TokenLookup 格式错误", cfg: &Config{SecretKey: testSecret, TokenLookup: "header"}, wantErr: ErrInvalidConfig},
		{name: "合法配置", cfg: &Config{SecretKey: testSecret}},
		{name: "HS512", cfg: &Config{SecretKey: testSecret, SigningMethod: "HS512"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, a)
		})
	}
}

func TestGenerateAndValidate(t *testing.T) {
	a := createTestAuthenticator(t, &Config{SecretKey: testSecret, Issuer: "sinteflake", Audience: []string{"ids"}})
	ctx := context.Background()

	token, err := a.GenerateToken(ctx, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"},
		Username:         "alice",
		Roles:            []string{"decoder"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := a.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "sinteflake", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"ids"}, claims.Audience)
	assert.True(t, claims.HasRole("decoder"))
	assert.False(t, claims.HasRole("admin"))
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestGenerateTokenNilClaims(t *testing.T) {
	a := createTestAuthenticator(t, nil)
	token, err := a.GenerateToken(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidClaims)
	assert.Empty(t, token)
}

func TestValidateTokenErrors(t *testing.T) {
	ctx := context.Background()
	a := createTestAuthenticator(t, &Config{SecretKey: testSecret, Issuer: "sinteflake"})

	other := createTestAuthenticator(t, &Config{SecretKey: "another-secret-key-that-is-long-enough", Issuer: "sinteflake"})
	foreign, err := other.GenerateToken(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}})
	require.NoError(t, err)

	expired, err := a.GenerateToken(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "x",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
	}})
	require.NoError(t, err)

	wrongIssuer := createTestAuthenticator(t, &Config{SecretKey: testSecret, Issuer: "someone-else"})
	otherIss, err := wrongIssuer.GenerateToken(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}})
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x", Issuer: "sinteflake"}})
	noExpToken, err := noExp.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "空 token", token: "", wantErr: ErrInvalidToken},
		{name: "格式错误", token: "not-a-jwt", wantErr: ErrInvalidToken},
		{name: "其它密钥签名", token: foreign, wantErr: ErrInvalidSignature},
		{name: "已过期", token: expired, wantErr: ErrExpiredToken},
		{name: "签发者不符", token: otherIss, wantErr: ErrInvalidToken},
		{name: "缺少 exp", token: noExpToken, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.ValidateToken(ctx, tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRefreshToken(t *testing.T) {
	a := createTestAuthenticator(t, nil)
	ctx := context.Background()

	oldToken, err := a.GenerateToken(ctx, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Roles: []string{"decoder"},
	})
	require.NoError(t, err)

	newToken, err := a.RefreshToken(ctx, oldToken)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, newToken)

	claims, err := a.ValidateToken(ctx, newToken)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.True(t, claims.HasRole("decoder"))
	assert.True(t, claims.ExpiresAt.After(time.Now().Add(10*time.Minute)))

	_, err = a.RefreshToken(ctx, "invalid-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		lookup  string
		setup   func(r *http.Request)
		want    string
		wantErr bool
	}{
		{
			name:  "Header",
			setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer header-token") },
			want:  "header-token",
		},
		{
			name:  "Query",
			setup: func(r *http.Request) { r.URL.RawQuery = "token=query-token" },
			want:  "query-token",
		},
		{
			name:  "Cookie",
			setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: "cookie-token"}) },
			want:  "cookie-token",
		},
		{
			name: "Header 优先",
			setup: func(r *http.Request) {
				r.URL.RawQuery = "token=query-token"
				r.Header.Set("Authorization", "Bearer header-token")
				r.AddCookie(&http.Cookie{Name: "jwt", Value: "cookie-token"})
			},
			want: "header-token",
		},
		{
			name: "Header 格式错误时回退到 Query",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic abc")
				r.URL.RawQuery = "token=query-token"
			},
			want: "query-token",
		},
		{name: "没有 token", setup: func(*http.Request) {}, wantErr: true},
		{
			name:    "单一来源只看 Header",
			lookup:  "header:Authorization",
			setup:   func(r *http.Request) { r.URL.RawQuery = "token=query-token" },
			wantErr: true,
		},
		{
			name:   "单一来源 Query",
			lookup: "query:token",
			setup: func(r *http.Request) {
				r.URL.RawQuery = "token=query-token"
				r.Header.Set("Authorization", "Bearer header-token")
			},
			want: "query-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := createTestAuthenticator(t, &Config{SecretKey: testSecret, TokenLookup: tt.lookup}).(*jwtAuth)
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			tt.setup(req)

			token, err := a.ExtractToken(req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := createTestAuthenticator(t, nil)
	ctx := context.Background()

	decoder, err := a.GenerateToken(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}, Roles: []string{"decoder"}})
	require.NoError(t, err)
	viewer, err := a.GenerateToken(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "guest"}})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/decode", a.GinMiddleware(), RequireRoles("decoder"), func(c *gin.Context) {
		claims, _ := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"subject": claims.Subject})
	})
	router.GET("/open", RequireRoles("decoder"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{name: "有角色", path: "/decode", token: decoder, want: http.StatusOK},
		{name: "缺少角色", path: "/decode", token: viewer, want: http.StatusForbidden},
		{name: "没有 token", path: "/decode", want: http.StatusUnauthorized},
		{name: "无效 token", path: "/decode", token: "invalid", want: http.StatusUnauthorized},
		{name: "未经认证直接校验角色", path: "/open", token: decoder, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), "ops")
			}
		})
	}
}

func TestAuthMetrics(t *testing.T) {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("auth-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	a, err := New(&Config{SecretKey: testSecret}, WithMeter(meter))
	require.NoError(t, err)

	ctx := context.Background()
	token, err := a.GenerateToken(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}})
	require.NoError(t, err)
	_, err = a.ValidateToken(ctx, token)
	require.NoError(t, err)
	_, err = a.ValidateToken(ctx, "bad")
	require.Error(t, err)

	w := httptest.NewRecorder()
	metrics.HTTPHandler(meter).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, MetricTokensGenerated)
	assert.Contains(t, body, `error_type="invalid_token"`)
}

func BenchmarkValidateToken(b *testing.B) {
	a, _ := New(&Config{SecretKey: testSecret})
	ctx := context.Background()
	token, _ := a.GenerateToken(ctx, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a.ValidateToken(ctx, token)
	}
}

func createTestAuthenticator(t *testing.T, cfg *Config) Authenticator {
	t.Helper()
	if cfg == nil {
		cfg = &Config{SecretKey: testSecret}
	}
	a, err := New(cfg, WithLogger(clog.Discard()), WithMeter(metrics.Discard()))
	require.NoError(t, err)
	return a
}
