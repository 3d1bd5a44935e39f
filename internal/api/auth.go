// Package api is spec §5's HTTP surface: POST /signals/:symbol,
// POST /backtests, GET /backtests/:id/tearsheet. Grounded on
// koshedutech-binance-trading-app/internal/api/server.go (gin.New +
// gin.Logger/gin.Recovery + cors.New + a per-endpoint in-memory
// RateLimiter) and internal/auth/jwt.go + middleware.go for the
// bearer-token boundary, both reworked from the teacher's
// multi-tenant user/subscription claims onto a flat API-key identity
// since this service has no user accounts of its own.
package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload: which caller, and whether they may
// trigger backtests (a heavier operation than reading a signal).
type Claims struct {
	ClientID    string `json:"client_id"`
	CanBacktest bool   `json:"can_backtest"`
	jwt.RegisteredClaims
}

// JWTManager mirrors the teacher's JWTManager (internal/auth/jwt.go):
// HS256-signed access tokens with a fixed issuer/audience, no refresh
// token machinery since this service issues long-lived service
// tokens, not end-user sessions.
type JWTManager struct {
	secret   []byte
	duration time.Duration
}

func NewJWTManager(secret string, duration time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), duration: duration}
}

func (m *JWTManager) GenerateToken(clientID string, canBacktest bool) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ClientID:    clientID,
		CanBacktest: canBacktest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
			Issuer:    "signalctl",
			Audience:  []string{"signalctl-api"},
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("api: sign token: %w", err)
	}
	return signed, nil
}

func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("api: invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("api: invalid token claims")
	}
	return claims, nil
}

// GenerateAPIKeySecret returns a random base64 secret suitable for
// bootstrapping a JWTManager, mirroring the teacher's
// GenerateRefreshToken random-bytes approach.
func GenerateAPIKeySecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

const contextKeyClaims = "signalctl_claims"

// authMiddleware validates the Bearer token, mirroring the teacher's
// auth.Middleware (internal/auth/middleware.go): missing header, bad
// format, and an invalid/expired token all 401 before the handler
// runs.
func authMiddleware(mgr *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}
		claims, err := mgr.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(contextKeyClaims, claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(contextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// requireBacktestScope rejects callers whose token doesn't carry
// CanBacktest, since a backtest run is far more CPU-expensive than a
// signal read.
func requireBacktestScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil || !claims.CanBacktest {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is not scoped for backtests"})
			return
		}
		c.Next()
	}
}
