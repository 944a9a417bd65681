// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/app/services"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// Authenticate validates operator JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, errCode, errMsg := extractBearer(c)
		if errCode != "" {
			return unauthorized(c, errMsg, errCode)
		}

		// Validate the token (this already checks for revocation)
		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			return tokenErrorResponse(c, err)
		}

		// Store owner information in context for downstream handlers
		c.Locals("owner_id", claims.OwnerID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// ScreenAuthenticate validates screen device JWT tokens. Device endpoints
// never accept operator tokens.
func (m *AuthMiddleware) ScreenAuthenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, errCode, errMsg := extractBearer(c)
		if errCode != "" {
			return unauthorized(c, errMsg, errCode)
		}

		claims, err := m.tokenService.ValidateScreenToken(token)
		if err != nil {
			return tokenErrorResponse(c, err)
		}

		c.Locals("screen_id", claims.ScreenID)
		c.Locals("token_id", claims.TokenID)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// extractBearer pulls the bearer token out of the Authorization header. A
// non-empty error code means the header was missing or malformed.
func extractBearer(c fiber.Ctx) (token, errCode, errMsg string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", "MISSING_AUTHORIZATION_HEADER", "Authorization header is required"
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'"
	}

	token = strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "MISSING_ACCESS_TOKEN", "Access token is required"
	}

	return token, "", ""
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: code,
		},
	})
}

func tokenErrorResponse(c fiber.Ctx, err error) error {
	var errorCode string
	var message string

	if errors.Is(err, services.ErrTokenExpired) {
		errorCode = "TOKEN_EXPIRED"
		message = "Access token has expired"
	} else if errors.Is(err, services.ErrTokenInvalid) {
		errorCode = "TOKEN_INVALID"
		message = "Invalid access token"
	} else if errors.Is(err, services.ErrTokenRevoked) {
		errorCode = "TOKEN_REVOKED"
		message = "Access token has been revoked"
	} else {
		errorCode = "TOKEN_VALIDATION_FAILED"
		message = "Token validation failed"
	}

	return unauthorized(c, message, errorCode)
}

// GetOwnerIDFromContext extracts the authenticated owner ID from the request
func GetOwnerIDFromContext(c fiber.Ctx) (uint, bool) {
	ownerID, ok := c.Locals("owner_id").(uint)
	return ownerID, ok
}

// GetScreenIDFromContext extracts the authenticated screen ID from the request
func GetScreenIDFromContext(c fiber.Ctx) (uint, bool) {
	screenID, ok := c.Locals("screen_id").(uint)
	return screenID, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}
