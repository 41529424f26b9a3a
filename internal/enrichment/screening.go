package enrichment

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/ingestion"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

const japan = "日本"

// Rules are the screening constraints that decide whether an application
// counts as valid. A nil bound means unlimited.
type Rules struct {
	MinAge        *int     `json:"minAge,omitempty"`
	MaxAge        *int     `json:"maxAge,omitempty"`
	Nationalities []string `json:"targetNationalities,omitempty"`
	JLPTLevels    []string `json:"allowedJlptLevels,omitempty"`
}

// NormalizeRules reads a rule payload, unwrapping rules, item or data
func NormalizeRules(r ingestion.Record) Rules {
	src := r
	for _, key := range []string{"rules", "item", "data"} {
		if inner, ok := r[key].(map[string]any); ok {
			src = ingestion.Record(inner)
			break
		}
	}

	var rules Rules
	if n, ok := src.Int("minAge", "min_age"); ok && n > 0 {
		v := int(n)
		rules.MinAge = &v
	}
	if n, ok := src.Int("maxAge", "max_age"); ok && n < 100 {
		v := int(n)
		rules.MaxAge = &v
	}
	if v, ok := src.Value("targetNationalities", "target_nationalities", "allowedNationalities", "allowed_nationalities", "nationalities"); ok {
		for _, n := range parseList(v) {
			if norm := NormalizeNationality(n); norm != "" {
				rules.Nationalities = append(rules.Nationalities, norm)
			}
		}
	}
	if v, ok := src.Value("allowedJlptLevels", "allowed_jlpt_levels", "allowed_japanese_levels"); ok {
		rules.JLPTLevels = parseList(v)
	}
	return rules
}

// HasConstraints reports whether any rule restricts eligibility
func (r Rules) HasConstraints() bool {
	return r.MinAge != nil || r.MaxAge != nil || len(r.Nationalities) > 0 || len(r.JLPTLevels) > 0
}

func parseList(v any) []string {
	var parts []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			parts = append(parts, strings.TrimSpace(toText(item)))
		}
	case []string:
		parts = append(parts, t...)
	default:
		parts = strings.FieldsFunc(toText(v), func(r rune) bool {
			return r == ',' || r == '、' || r == '，' || r == '\n'
		})
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// NormalizeNationality folds the spellings of Japan onto 日本
func NormalizeNationality(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" || ingestion.IsPlaceholder(text) {
		return ""
	}
	switch strings.ToLower(text) {
	case "japan", "jpn", "jp", "japanese":
		return japan
	}
	switch text {
	case "日本国", "日本国籍", "日本人", "日本国民":
		return japan
	}
	return text
}

// CandidateAge prefers the birthday and falls back to the free-text age
func CandidateAge(c types.Candidate, now time.Time) *int {
	if age := ingestion.AgeFromBirthday(c.Birthday, now); age != nil {
		return age
	}
	if c.Age != nil {
		return c.Age
	}
	return ingestion.ParseAgeText(c.AgeText)
}

// ComputeValidApplication evaluates rules against c. It returns nil when
// the rules impose no constraint.
func ComputeValidApplication(c types.Candidate, rules Rules, now time.Time) *bool {
	if !rules.HasConstraints() {
		return nil
	}
	res := func(b bool) *bool { return &b }

	if rules.MinAge != nil || rules.MaxAge != nil {
		age := CandidateAge(c, now)
		if age == nil {
			return res(false)
		}
		if rules.MinAge != nil && *age < *rules.MinAge {
			return res(false)
		}
		if rules.MaxAge != nil && *age > *rules.MaxAge {
			return res(false)
		}
	}

	nationality := NormalizeNationality(c.Nationality)
	if nationality == "" {
		nationality = japan
	}
	if len(rules.Nationalities) > 0 && !slices.Contains(rules.Nationalities, nationality) {
		return res(false)
	}
	if nationality == japan || len(rules.JLPTLevels) == 0 {
		return res(true)
	}
	level := strings.TrimSpace(c.JapaneseLevel)
	if level == "" || ingestion.IsPlaceholder(level) {
		return res(false)
	}
	return res(slices.Contains(rules.JLPTLevels, level))
}

// ResolveValidApplication lets an explicit upstream flag win over the
// computed result
func ResolveValidApplication(c types.Candidate, rules Rules, now time.Time) *bool {
	if c.ValidApplication != nil {
		return c.ValidApplication
	}
	return ComputeValidApplication(c, rules, now)
}
