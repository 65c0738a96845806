package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"ai-orchestrator-be/internal/entity"
)

// Extractor pulls every entity of one type out of text.
type Extractor func(text string) []entity.Entity

var (
	dueDatePattern     = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|next week|next month|end of (?:the )?(?:day|week|month)|monday|tuesday|wednesday|thursday|friday|saturday|sunday|\d{4}-\d{2}-\d{2})\b`)
	urlPattern         = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+`)
	emailPattern       = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)
	mentionPattern     = regexp.MustCompile(`(?:^|\s)(@[A-Za-z0-9_][A-Za-z0-9_.-]*)`)
	integrationPattern = regexp.MustCompile(`(?i)\b(notion|slack|github|gitlab|jira|linear|google docs|google drive|confluence|trello|asana|google calendar|outlook|gmail|discord|telegram|teams)\b`)
	priorityPattern    = regexp.MustCompile(`(?i)\b(urgent|asap|high priority|medium priority|low priority|p[0-3])\b`)
	attachmentPattern  = regexp.MustCompile(`(?i)\b[\w-]+\.(png|jpe?g|gif|webp|svg|heic|pdf|docx?|pptx?|csv|xlsx?|md|txt)\b`)
	webQueryPattern    = regexp.MustCompile(`(?i)\b(?:search (?:the web |online )?for|look up|google|find (?:articles|sources|news) (?:on|about))\s+([^.?!\n]+)`)
)

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true, "svg": true, "heic": true,
}

// IsImageAttachment reports whether an attachment value names an image file.
func IsImageAttachment(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	return imageExtensions[strings.ToLower(name[idx+1:])]
}

func extractDueDates(text string) []entity.Entity {
	var out []entity.Entity
	for _, m := range dueDatePattern.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[2]:m[3]]
		out = append(out, entity.Entity{
			Type:  entity.EntityDueDate,
			Value: canonicalDate(raw),
			Span:  entity.Span{Start: m[2], End: m[3]},
		})
	}
	return out
}

// canonicalDate keeps weekdays title-cased ("Friday") and relative phrases lower-cased.
func canonicalDate(raw string) string {
	lower := strings.ToLower(raw)
	switch lower {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return strings.ToUpper(lower[:1]) + lower[1:]
	case "tonight":
		return "today"
	}
	return strings.Join(strings.Fields(lower), " ")
}

func extractURLs(text string) []entity.Entity {
	var out []entity.Entity
	for _, m := range urlPattern.FindAllStringIndex(text, -1) {
		value := strings.TrimRight(text[m[0]:m[1]], ".,;:!?)")
		out = append(out, entity.Entity{
			Type:  entity.EntityURL,
			Value: value,
			Span:  entity.Span{Start: m[0], End: m[0] + len(value)},
		})
	}
	return out
}

func extractEmails(text string) []entity.Entity {
	return simpleMatches(text, emailPattern, entity.EntityEmail, strings.ToLower)
}

func extractMentions(text string) []entity.Entity {
	var out []entity.Entity
	for _, m := range mentionPattern.FindAllStringSubmatchIndex(text, -1) {
		value := strings.TrimRight(text[m[2]:m[3]], ".-")
		out = append(out, entity.Entity{
			Type:  entity.EntityMention,
			Value: value,
			Span:  entity.Span{Start: m[2], End: m[2] + len(value)},
		})
	}
	return out
}

func extractIntegrations(text string) []entity.Entity {
	return simpleMatches(text, integrationPattern, entity.EntityIntegration, strings.ToLower)
}

func extractPriorities(text string) []entity.Entity {
	return simpleMatches(text, priorityPattern, entity.EntityPriority, canonicalPriority)
}

func canonicalPriority(raw string) string {
	switch strings.ToLower(raw) {
	case "urgent", "asap", "high priority", "p0", "p1":
		return "high"
	case "medium priority", "p2":
		return "medium"
	default:
		return "low"
	}
}

func extractAttachments(text string) []entity.Entity {
	return simpleMatches(text, attachmentPattern, entity.EntityAttachment, nil)
}

func extractWebQueries(text string) []entity.Entity {
	var out []entity.Entity
	for _, m := range webQueryPattern.FindAllStringSubmatchIndex(text, -1) {
		value := strings.TrimSpace(text[m[2]:m[3]])
		if value == "" {
			continue
		}
		out = append(out, entity.Entity{
			Type:  entity.EntityWebQuery,
			Value: value,
			Span:  entity.Span{Start: m[2], End: m[2] + len(value)},
		})
	}
	return out
}

func simpleMatches(text string, re *regexp.Regexp, typ entity.EntityType, normalize func(string) string) []entity.Entity {
	var out []entity.Entity
	for _, m := range re.FindAllStringIndex(text, -1) {
		value := text[m[0]:m[1]]
		if normalize != nil {
			value = normalize(value)
		}
		out = append(out, entity.Entity{Type: typ, Value: value, Span: entity.Span{Start: m[0], End: m[1]}})
	}
	return out
}

// DefaultExtractors runs every built-in extractor.
var DefaultExtractors = []Extractor{
	extractDueDates,
	extractURLs,
	extractEmails,
	extractMentions,
	extractIntegrations,
	extractPriorities,
	extractAttachments,
	extractWebQueries,
}

// orderEntities sorts by span start and drops entities nested inside a URL or
// email span (a file name inside a link is part of the link).
func orderEntities(entities []entity.Entity) []entity.Entity {
	var containers []entity.Span
	for _, e := range entities {
		if e.Type == entity.EntityURL || e.Type == entity.EntityEmail {
			containers = append(containers, e.Span)
		}
	}

	kept := make([]entity.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Type != entity.EntityURL && e.Type != entity.EntityEmail && nestedIn(e.Span, containers) {
			continue
		}
		kept = append(kept, e)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Span.Start != kept[j].Span.Start {
			return kept[i].Span.Start < kept[j].Span.Start
		}
		return kept[i].Span.End < kept[j].Span.End
	})
	return kept
}

func nestedIn(span entity.Span, containers []entity.Span) bool {
	for _, c := range containers {
		if span.Start >= c.Start && span.End <= c.End {
			return true
		}
	}
	return false
}
