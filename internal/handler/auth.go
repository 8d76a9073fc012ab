package handler

import (
	"net/http"
	"strings"
	"time"

	"eventx-ticketing/config"
	"eventx-ticketing/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const identityKey = "identity"

// Claims carries the caller id in `sub` and the role in `role`.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for identity. Token issuance belongs to the
// identity provider; this is used by tests and local tooling.
func SignToken(cfg config.AuthConfig, identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// JWTAuth 驗證 Bearer token 並將 Identity 放入 context
func JWTAuth(cfg config.AuthConfig) gin.HandlerFunc {
	return authenticate(cfg, true)
}

// OptionalJWTAuth lets anonymous requests through. A token that is present
// must still be valid.
func OptionalJWTAuth(cfg config.AuthConfig) gin.HandlerFunc {
	return authenticate(cfg, false)
}

func authenticate(cfg config.AuthConfig, required bool) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" && !required {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be Bearer {token}"})
			return
		}

		var claims Claims
		if _, err := parser.ParseWithClaims(token, &claims, keyFunc); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil || !claims.Role.IsValid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		SetIdentity(c, model.Identity{UserID: userID, Role: claims.Role})
		c.Next()
	}
}

// RequireRoles 檢查呼叫者角色
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

func SetIdentity(c *gin.Context, identity model.Identity) {
	c.Set(identityKey, identity)
}

func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}

// viewer returns the identity of an optionally authenticated caller.
func viewer(c *gin.Context) *model.Identity {
	identity, ok := IdentityFrom(c)
	if !ok {
		return nil
	}
	return &identity
}

// caller returns the authenticated identity or answers 401.
func caller(c *gin.Context) (model.Identity, bool) {
	identity, ok := IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return identity, ok
}

// userSubject keys rate limits by caller, falling back to the client address.
func userSubject(c *gin.Context) string {
	if identity, ok := IdentityFrom(c); ok {
		return identity.UserID.String()
	}
	return c.ClientIP()
}
