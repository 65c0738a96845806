package session

import (
	"math"
	"time"

	"ai-orchestrator-be/internal/entity"
)

// ContinuityConfig shapes ContinuityScore:
//
//	score = 0.5^(elapsed/HalfLife) × (RecencyFloor + (1-RecencyFloor) × similarity)
//
// similarity is the Jaccard index over {intent} ∪ {entity type=value} of the
// new request and the previous turn.
type ContinuityConfig struct {
	HalfLife     time.Duration
	RecencyFloor float64
	// Smoothing is the weight of the newest turn in the rolling session score.
	Smoothing float64
}

func DefaultContinuityConfig() ContinuityConfig {
	return ContinuityConfig{HalfLife: 5 * time.Minute, RecencyFloor: 0.6, Smoothing: 0.5}
}

// Score rates how likely a new request continues the previous turn, in [0,1].
// A session without turns scores 0.
func (c ContinuityConfig) Score(s *entity.Session, next entity.AnalysisResult, now time.Time) float64 {
	last := s.LastTurn()
	if last == nil {
		return 0
	}

	elapsed := now.Sub(last.Timestamp)
	if elapsed < 0 {
		elapsed = 0
	}
	halfLife := c.HalfLife
	if halfLife <= 0 {
		halfLife = DefaultContinuityConfig().HalfLife
	}
	recency := math.Pow(0.5, float64(elapsed)/float64(halfLife))

	similarity := jaccard(features(last.Intent, last.Entities), features(next.Intent, next.Entities))
	score := recency * (c.RecencyFloor + (1-c.RecencyFloor)*similarity)
	return math.Max(0, math.Min(1, score))
}

// Rolling folds the newest score into the session's running value.
func (c ContinuityConfig) Rolling(previous, current float64, firstTurn bool) float64 {
	if firstTurn {
		return current
	}
	return c.Smoothing*current + (1-c.Smoothing)*previous
}

func features(intent entity.Intent, entities []entity.Entity) map[string]struct{} {
	set := make(map[string]struct{}, len(entities)+1)
	if intent != "" && intent != entity.IntentUnknown {
		set["intent:"+string(intent)] = struct{}{}
	}
	for _, e := range entities {
		set[string(e.Type)+"="+e.Value] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
