package dto

import (
	"ai-orchestrator-be/pkg/ai/dispatch"
	"ai-orchestrator-be/pkg/usage"
)

type HealthResponse struct {
	Status          string                     `json:"status"`
	Breakers        []dispatch.BreakerSnapshot `json:"breakers"`
	Usage           []usage.Totals             `json:"usage"`
	UsageDropped    int                        `json:"usage_dropped"`
	PersistFailures int64                      `json:"persist_failures"`
	ChatConnections int                        `json:"chat_connections"`
}
