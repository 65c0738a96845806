package serverutils

import (
	"errors"
	"math"
	"strconv"

	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an app error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindThrottled, apperror.KindRateLimit:
		return fiber.StatusTooManyRequests
	case apperror.KindBackendUnavailable, apperror.KindCircuitOpen, apperror.KindTransientBackend:
		return fiber.StatusServiceUnavailable
	case apperror.KindTimeout:
		return fiber.StatusGatewayTimeout
	case apperror.KindBackendRejected:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// BuildErrorResponse turns any error into the wire shape plus its status.
func BuildErrorResponse(err error) (int, ErrorResponse) {
	if appErr, ok := apperror.As(err); ok {
		status := StatusFor(appErr.Kind)
		resp := ErrorResponse{
			Code:      status,
			Message:   appErr.Error(),
			Kind:      string(appErr.Kind),
			KnownDown: appErr.KnownDown,
		}
		if appErr.RetryAfter > 0 {
			resp.RetryAfter = int(math.Ceil(appErr.RetryAfter.Seconds()))
		}
		if status == fiber.StatusInternalServerError {
			resp.Message = "Internal server error"
		}
		return status, resp
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse{Code: fiberErr.Code, Message: fiberErr.Message}
	}
	return fiber.StatusInternalServerError, ErrorResponse{Code: fiber.StatusInternalServerError, Message: "Internal server error"}
}

// ErrorHandler is installed as fiber's ErrorHandler.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		status, resp := BuildErrorResponse(err)
		if status >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"path":   ctx.Path(),
				"status": status,
				"error":  err.Error(),
			})
		}
		if resp.RetryAfter > 0 {
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(resp.RetryAfter))
		}
		return ctx.Status(status).JSON(resp)
	}
}
