package controller

import (
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router, tenant fiber.Handler)
	Show(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.IOrchestratorService
}

func NewSessionController(service service.IOrchestratorService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router, tenant fiber.Handler) {
	h := r.Group("/session/v1")
	h.Use(tenant)
	h.Get(":tenantId/:conversationId", c.Show)
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	callerTenantId, _, err := serverutils.Tenant(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.InspectSession(ctx.UserContext(), callerTenantId, ctx.Params("tenantId"), ctx.Params("conversationId"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}
