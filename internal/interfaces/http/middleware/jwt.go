package middleware

import (
	"net/http"
	"strings"

	"github.com/garage/backend/internal/infrastructure/auth"
	"github.com/garage/backend/internal/infrastructure/logger"
	"github.com/garage/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys under which the middleware publishes the validated claims.
// Handlers read the tenant and user through these; the tenant claim is the
// sole source of tenant identity for every fiscal operation.
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTTenantIDKey = "jwt_tenant_id"
	JWTUsernameKey = "jwt_username"

	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig configures the authentication middleware
type JWTMiddlewareConfig struct {
	// JWTService validates access tokens
	JWTService *auth.JWTService
	// TokenBlacklist is consulted for revoked tokens when non-nil
	TokenBlacklist auth.TokenBlacklist
	// SkipPaths bypass authentication (health checks, public pings)
	SkipPaths []string
	// OnError overrides the default 401 response
	OnError func(c *gin.Context, err error)
	// Logger records auth failures and blacklist lookup problems
	Logger *zap.Logger
}

// DefaultJWTConfig protects everything except the health and ping endpoints
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
	}
}

// JWTAuthMiddleware authenticates with the default configuration
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig authenticates requests from the bearer token.
// On success the claims land in the gin context and the request context
// carries a tenant- and user-scoped logger.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}

		token, err := bearerToken(c)
		if err != nil {
			rejectUnauthenticated(c, cfg, err)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			rejectUnauthenticated(c, cfg, err)
			return
		}

		if revoked := checkRevocation(c, cfg, claims); revoked {
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTTenantIDKey, claims.TenantID)
		c.Set(JWTUsernameKey, claims.Username)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithUserID(ctx, log, claims.UserID)
		ctx, _ = logger.WithTenantID(ctx, log, claims.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader(authHeaderKey)
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return "", auth.ErrInvalidToken
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

// checkRevocation consults the blacklist for the token's jti and for a
// user-wide invalidation (forced logout, password change). Lookup errors
// fail open: issuance and payment must survive a blacklist store outage.
func checkRevocation(c *gin.Context, cfg JWTMiddlewareConfig, claims *auth.Claims) bool {
	if cfg.TokenBlacklist == nil {
		return false
	}
	ctx := c.Request.Context()

	if claims.ID != "" {
		revoked, err := cfg.TokenBlacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Error("token blacklist lookup failed",
					zap.String("jti", claims.ID), zap.Error(err))
			}
		} else if revoked {
			rejectUnauthenticated(c, cfg, auth.ErrTokenBlacklisted)
			return true
		}
	}

	if claims.UserID != "" {
		invalidated, err := cfg.TokenBlacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Error("user invalidation lookup failed",
					zap.String("user_id", claims.UserID), zap.Error(err))
			}
		} else if invalidated {
			rejectUnauthenticated(c, cfg, auth.ErrTokenBlacklisted)
			return true
		}
	}
	return false
}

func rejectUnauthenticated(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("authentication rejected",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code := dto.ErrCodeUnauthorized
	message := "Authentication required"
	switch err {
	case auth.ErrExpiredToken:
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case auth.ErrInvalidToken, auth.ErrInvalidTokenType, auth.ErrTokenNotYetValid:
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	case auth.ErrTokenBlacklisted:
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
}

// GetJWTClaims returns the validated claims, or nil outside the middleware
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetJWTUserID returns the authenticated user id claim, or ""
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetJWTTenantID returns the authenticated tenant id claim, or ""
func GetJWTTenantID(c *gin.Context) string {
	return c.GetString(JWTTenantIDKey)
}

// GetJWTUsername returns the authenticated username claim, or ""
func GetJWTUsername(c *gin.Context) string {
	return c.GetString(JWTUsernameKey)
}
