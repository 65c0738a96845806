package router

import (
	"strings"

	"ai-orchestrator-be/internal/entity"
)

// Directive prefixes a user may put in front of a message to steer routing.
const (
	PrefixCategory = "/category:"
	PrefixSkill    = "/skill:"
)

// Directives is what ParseDirectives extracted from the head of a message.
type Directives struct {
	OriginalText string
	CleanText    string
	Category     entity.Category // empty when no valid /category: directive was given
	Skills       []entity.Skill
	Rejected     []string // directives with an unknown name, kept for logging
}

// ParseDirectives consumes leading directives in any order:
//   - /category:<name> <text> → pin the category
//   - /skill:<name> <text>    → attach a skill explicitly (repeatable)
//   - <text>                  → no directives
//
// The first token that is not a directive ends the directive block.
// When the same directive repeats, the last /category: wins.
func ParseDirectives(text string) *Directives {
	d := &Directives{OriginalText: text}
	rest := strings.TrimSpace(text)

	for {
		lower := strings.ToLower(rest)

		switch {
		case strings.HasPrefix(lower, PrefixCategory):
			key, remaining := extractKeyAndPrompt(rest[len(PrefixCategory):])
			if category := entity.Category(key); category.Valid() {
				d.Category = category
			} else {
				d.Rejected = append(d.Rejected, PrefixCategory+key)
			}
			rest = remaining

		case strings.HasPrefix(lower, PrefixSkill):
			key, remaining := extractKeyAndPrompt(rest[len(PrefixSkill):])
			if skill := entity.Skill(key); skill.Valid() {
				d.Skills = append(d.Skills, skill)
			} else {
				d.Rejected = append(d.Rejected, PrefixSkill+key)
			}
			rest = remaining

		default:
			d.CleanText = rest
			return d
		}
	}
}

// extractKeyAndPrompt splits "key prompt" into (key, prompt)
func extractKeyAndPrompt(rest string) (string, string) {
	spaceIdx := strings.IndexAny(rest, " \t\n")
	if spaceIdx == -1 {
		// No space: entire rest is the key, no prompt
		return strings.ToLower(rest), ""
	}
	return strings.ToLower(rest[:spaceIdx]), strings.TrimSpace(rest[spaceIdx+1:])
}

// HasDirectives reports whether anything was parsed off the message.
func (d *Directives) HasDirectives() bool {
	return d.Category != "" || len(d.Skills) > 0 || len(d.Rejected) > 0
}

// IsEmpty returns true if nothing but directives was sent
func (d *Directives) IsEmpty() bool {
	return strings.TrimSpace(d.CleanText) == ""
}
