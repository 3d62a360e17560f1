package http

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RegisterMiddlewares installs, outermost first: the per-request deadline
// handed to the ticket service, the request logger, and the error renderer.
// The logger sits outside the renderer so it records the final status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestDeadline(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorRenderer(logger, metrics))
}

// requestDeadline bounds the context every service call receives.
func requestDeadline(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorRenderer turns handler errors and panics into the JSON error body
// {"error":{"code","message","details"}}.
func errorRenderer(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := callRecovering(c, logger)
		if err == nil {
			return nil
		}

		domainErr := apperrors.ToDomainError(err)
		metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)

		fields := []zap.Field{
			zap.String("request_id", c.GetRespHeader(observability.RequestIDHeader)),
			zap.String("code", domainErr.Code),
			zap.String("path", c.Path()),
		}
		switch {
		case domainErr.HTTPStatus >= fiber.StatusInternalServerError:
			logger.Error("request failed", append(fields, zap.Error(domainErr))...)
		case domainErr.Code == apperrors.CodeValidationFailed:
			logger.Debug("ticket rejected", append(fields, zap.String("reason", domainErr.Message))...)
		}

		body := fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		}
		if len(domainErr.Details) > 0 {
			body["details"] = domainErr.Details
		}
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
	}
}

// callRecovering runs the rest of the chain, converting a panic into an
// internal error.
func callRecovering(c *fiber.Ctx, logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
		}
	}()
	return c.Next()
}
