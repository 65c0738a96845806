package controller

import (
	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/service"
	"ai-orchestrator-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

type IDispatchController interface {
	RegisterRoutes(r fiber.Router, tenant fiber.Handler)
	Dispatch(ctx *fiber.Ctx) error
}

type dispatchController struct {
	service service.IOrchestratorService
}

func NewDispatchController(service service.IOrchestratorService) IDispatchController {
	return &dispatchController{service: service}
}

func (c *dispatchController) RegisterRoutes(r fiber.Router, tenant fiber.Handler) {
	h := r.Group("/dispatch/v1")
	h.Use(tenant)
	h.Post("", c.Dispatch)
}

func (c *dispatchController) Dispatch(ctx *fiber.Ctx) error {
	tenantId, userId, err := serverutils.Tenant(ctx)
	if err != nil {
		return err
	}

	var req dto.DispatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body: %v", err)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Dispatch(ctx.UserContext(), tenantId, userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success dispatch request", res))
}
