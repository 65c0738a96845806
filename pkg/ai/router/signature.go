package router

import (
	"sort"
	"strings"

	"ai-orchestrator-be/internal/entity"
)

// free-form entity types contribute only their type to a signature, so
// paraphrases that differ in a link or a name still share a cache entry.
var typeOnlyEntities = map[entity.EntityType]bool{
	entity.EntityURL:        true,
	entity.EntityEmail:      true,
	entity.EntityMention:    true,
	entity.EntityWebQuery:   true,
	entity.EntityAttachment: true,
}

// Signature is the normalized cache key of an analysis: intent plus a sorted,
// deduplicated entity signature. Raw text never takes part in it.
func Signature(a entity.AnalysisResult) string {
	parts := make([]string, 0, len(a.Entities))
	seen := make(map[string]bool, len(a.Entities))
	for _, e := range a.Entities {
		part := string(e.Type)
		if !typeOnlyEntities[e.Type] {
			part += "=" + strings.Join(strings.Fields(strings.ToLower(e.Value)), " ")
		}
		if seen[part] {
			continue
		}
		seen[part] = true
		parts = append(parts, part)
	}
	sort.Strings(parts)
	return string(a.Intent) + "|" + strings.Join(parts, ",")
}

// cacheable reports whether an analysis carries enough signal to share a decision.
func cacheable(a entity.AnalysisResult) bool {
	return a.Intent != entity.IntentUnknown || len(a.Entities) > 0
}
