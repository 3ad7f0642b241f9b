package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const authContextKey = "auth"

// Logger 日志中间件
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.Duration("latency", latency),
			zap.String("request_id", c.GetString("request_id")),
		}

		if auth, ok := GetAuth(c); ok {
			fields = append(fields, zap.String("subject", auth.Subject), zap.String("auth_method", string(auth.Method)))
		}

		if status >= 500 {
			logger.Error("Server error", fields...)
		} else if status >= 400 {
			logger.Warn("Client error", fields...)
		} else {
			logger.Info("Request", fields...)
		}
	}
}

// CORS 跨域中间件
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, X-API-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestID 请求ID中间件
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// JWTClaims JWT claims
type JWTClaims struct {
	UserID      string   `json:"uid"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"perms"`
	jwt.RegisteredClaims
}

// AuthMethod 认证方式
type AuthMethod string

const (
	AuthMethodAPIKey    AuthMethod = "api_key"
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// AdminRole passes every RequireRole check.
const AdminRole = "onboard_admin"

// AuthConfig 认证配置，均为空时不做认证
type AuthConfig struct {
	APIKey    string
	JWTSecret string
	Issuer    string
}

// AuthContext identifies the caller of a request.
type AuthContext struct {
	Subject string
	Email   string
	Method  AuthMethod
	Roles   []string
}

// HasRole reports whether the caller holds role.
func (a AuthContext) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role || r == AdminRole {
			return true
		}
	}
	return false
}

// GetAuth returns the AuthContext set by Authorize.
func GetAuth(c *gin.Context) (AuthContext, bool) {
	v, ok := c.Get(authContextKey)
	if !ok {
		return AuthContext{}, false
	}
	auth, ok := v.(AuthContext)
	return auth, ok
}

// Subject returns the caller subject, or "" when unauthenticated.
func Subject(c *gin.Context) string {
	auth, _ := GetAuth(c)
	return auth.Subject
}

func setAuth(c *gin.Context, auth AuthContext) {
	c.Set(authContextKey, auth)
	c.Set("user_id", auth.Subject)
}

func unauthorized(c *gin.Context, code int, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    code,
		"message": message,
	})
	c.Abort()
}

// Authorize accepts either the shared X-API-Key or a Bearer JWT and places
// an AuthContext on the request. With neither configured every request is
// let through as an anonymous administrator.
func Authorize(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APIKey == "" && cfg.JWTSecret == "" {
			setAuth(c, AuthContext{Subject: "anonymous", Method: AuthMethodAnonymous, Roles: []string{AdminRole}})
			c.Next()
			return
		}

		if key := c.GetHeader("X-API-Key"); key != "" && cfg.APIKey != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) != 1 {
				unauthorized(c, 40101, "Invalid API key")
				return
			}
			setAuth(c, AuthContext{Subject: "api-key", Method: AuthMethodAPIKey, Roles: []string{AdminRole}})
			c.Next()
			return
		}

		tokenString := bearerToken(c)
		if tokenString == "" || cfg.JWTSecret == "" {
			unauthorized(c, 40100, "Authorization is required")
			return
		}

		claims, err := ParseToken(tokenString, cfg.JWTSecret, cfg.Issuer)
		if err != nil {
			unauthorized(c, 40102, "Invalid or expired token")
			return
		}

		setAuth(c, AuthContext{
			Subject: claims.UserID,
			Email:   claims.Email,
			Method:  AuthMethodJWT,
			Roles:   claims.Roles,
		})
		c.Set("claims", claims)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter used by EventSource clients.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Query("token")
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(tokenString, secret, issuer string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// RequireRole 角色检查中间件
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := GetAuth(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    40310,
				"message": "No roles found",
			})
			c.Abort()
			return
		}

		if auth.HasRole(role) {
			c.Next()
			return
		}

		c.JSON(http.StatusForbidden, gin.H{
			"code":    40312,
			"message": "Role required: " + role,
		})
		c.Abort()
	}
}
