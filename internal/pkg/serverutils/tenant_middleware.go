package serverutils

import (
	"fmt"
	"strings"

	"ai-orchestrator-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalTenantId = "tenant_id"
	LocalUserId   = "user_id"
)

// TenantMiddleware puts the caller's tenant and user into ctx.Locals. With a
// secret configured they come from a Bearer token's tenant_id/user_id claims;
// without one (local development) from the X-Tenant-Id and X-User-Id headers.
func TenantMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tenantId, userId, err := identify(ctx, secret)
		if err != nil {
			return err
		}
		ctx.Locals(LocalTenantId, tenantId)
		ctx.Locals(LocalUserId, userId)
		return ctx.Next()
	}
}

func identify(ctx *fiber.Ctx, secret string) (string, string, error) {
	if secret == "" {
		tenantId := strings.TrimSpace(ctx.Get("X-Tenant-Id"))
		userId := strings.TrimSpace(ctx.Get("X-User-Id"))
		if tenantId == "" || userId == "" {
			return "", "", fiber.NewError(fiber.StatusUnauthorized, "Missing X-Tenant-Id or X-User-Id")
		}
		return tenantId, userId, nil
	}

	tokenStr := ctx.Query("token")
	if tokenStr == "" {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Missing token")
	}

	claims, err := ParseTenantClaims(tokenStr, secret)
	if err != nil {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}
	return claims.TenantId, claims.UserId, nil
}

type TenantClaims struct {
	TenantId string `json:"tenant_id"`
	UserId   string `json:"user_id"`
	jwt.RegisteredClaims
}

func ParseTenantClaims(tokenStr, secret string) (*TenantClaims, error) {
	claims := &TenantClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("Invalid token")
	}
	if claims.TenantId == "" || claims.UserId == "" {
		return nil, fmt.Errorf("Token missing tenant_id or user_id")
	}
	return claims, nil
}

// Tenant reads what TenantMiddleware stored.
func Tenant(ctx *fiber.Ctx) (tenantId, userId string, err error) {
	tenantId, _ = ctx.Locals(LocalTenantId).(string)
	userId, _ = ctx.Locals(LocalUserId).(string)
	if tenantId == "" || userId == "" {
		return "", "", apperror.Validation("request has no tenant")
	}
	return tenantId, userId, nil
}
