package entity

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionPlan is built once per request and handed to the dispatcher unchanged.
type ExecutionPlan struct {
	Id         uuid.UUID
	Request    Request
	Analysis   AnalysisResult
	Category   Category
	Strategy   string
	Skills     []Skill
	Session    *Session
	Profile    CategoryProfile
	Target     string
	Idempotent bool
	CreatedAt  time.Time
}

type Usage struct {
	BackendTarget string        `json:"backend_target"`
	Model         string        `json:"model"`
	TokensIn      int           `json:"tokens_in"`
	TokensOut     int           `json:"tokens_out"`
	Cost          float64       `json:"cost"`
	Latency       time.Duration `json:"latency"`
	Success       bool          `json:"success"`
	Abandoned     bool          `json:"abandoned"`
}

type ToolInvocation struct {
	Name    string `json:"name"`
	Skill   Skill  `json:"skill"`
	IsError bool   `json:"is_error"`
}

type Result struct {
	PlanId     uuid.UUID
	Text       string
	Category   Category
	Strategy   string
	Skills     []Skill
	Analysis   AnalysisResult
	Attempts   int
	Usage      Usage
	ToolCalls  []ToolInvocation
	FinishedAt time.Time
}
