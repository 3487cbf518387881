// Package scorer converts normalized opportunity records into 0-100
// revenue-potential scores with a recommended next action.
package scorer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/normalize"
)

// Engine scores opportunities against the configured rules tables.
type Engine struct {
	rules *Rules
}

// NewEngine creates an Engine. A nil rules argument uses the built-in
// defaults.
func NewEngine(rules *Rules) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// Score converts a validated record into a scored opportunity. The record
// never fails to score: unknown types fall into the default range.
func (e *Engine) Score(rec model.OpportunityRecord) model.Opportunity {
	typ := rec.Type
	if typ == "" {
		typ = DetectType(rec.Subject, rec.Content)
	}

	influence := rec.InfluenceScore
	if influence == 0 {
		influence = Influence(rec)
	}

	score := e.computeScore(typ, rec.Content, rec.RawScore, influence)

	return model.Opportunity{
		Type:             typ,
		Score:            score,
		Source:           rec.Source,
		Sender:           rec.Sender,
		Content:          truncate(rec.Content, 500),
		RevenuePotential: RevenueEstimate(typ, score),
		ActionRequired:   e.rules.ActionFor(typ),
		Timestamp:        rec.Timestamp,
		RawScore:         rec.RawScore,
		InfluenceScore:   influence,
		Fingerprint:      normalize.Fingerprint(rec.Content),
	}
}

// computeScore applies the scoring model: range midpoint, optional 30%
// raw-score blend, urgency and influence boosts, then clamping to
// [rangeMin-10, rangeMax] and finally [0,100].
func (e *Engine) computeScore(typ model.OpportunityType, content string, rawScore, influence int) int {
	rg := e.rules.RangeFor(typ)
	base := float64(rg.Min+rg.Max) / 2

	if rawScore > 0 {
		base = base*0.7 + float64(rawScore)*0.3
	}

	contentLower := strings.ToLower(content)
	hits := 0
	for _, kw := range e.rules.UrgencyKeywords {
		if strings.Contains(contentLower, kw) {
			hits++
		}
	}
	urgencyBoost := min(hits*3, 15)
	influenceBoost := min(influence, 20)

	score := int(base) + urgencyBoost + influenceBoost

	score = min(score, rg.Max)
	score = max(score, rg.Min-10)
	return max(0, min(100, score))
}

// DetectType infers the opportunity type from subject and content
// keywords. Golf coaching outranks generic coaching, which outranks
// partnership and feedback signals.
func DetectType(subject, content string) model.OpportunityType {
	text := strings.ToLower(subject + " " + content)

	if containsAny(text, "golf", "swing", "putting", "handicap", "course") &&
		containsAny(text, "coach", "lesson", "help", "teach", "improve") {
		return model.TypeGolfCoaching
	}
	if containsAny(text, "coach", "coaching", "mentor", "consulting") {
		return model.TypeCoaching
	}
	if containsAny(text, "partner", "partnership", "collaborate", "work together") {
		return model.TypePartnership
	}
	if containsAny(text, "feedback", "review", "suggestion", "feature") {
		return model.TypeProductFeedback
	}
	return model.TypeGeneral
}

// Influence derives a sender-influence boost (0-20) from source-specific
// signals: follower tiers for twitter, verified senders for email.
func Influence(rec model.OpportunityRecord) int {
	switch rec.Source {
	case model.SourceTwitter:
		switch {
		case rec.FollowerCount > 50000:
			return 20
		case rec.FollowerCount > 10000:
			return 15
		case rec.FollowerCount > 5000:
			return 10
		case rec.FollowerCount > 1000:
			return 5
		default:
			return 2
		}
	case model.SourceEmail:
		if rec.VerifiedSender {
			return 10
		}
		return 5
	default:
		return 0
	}
}

// RevenueEstimate maps a type and score to a human-readable revenue
// bucket.
func RevenueEstimate(typ model.OpportunityType, score int) string {
	switch typ {
	case model.TypeGolfCoaching, model.TypeCoaching:
		switch {
		case score >= 95:
			return "$500-1000"
		case score >= 90:
			return "$200-500"
		default:
			return "$100-200"
		}
	case model.TypePartnership:
		if score >= 75 {
			return "$300-800"
		}
		return "$100-300"
	case model.TypeConversion:
		switch {
		case score >= 90:
			return "$300-500"
		case score >= 70:
			return "$100-300"
		default:
			return "$50-100"
		}
	case model.TypeProductFeedback:
		return "$0-50"
	default:
		return "$0-100"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// truncate shortens s to n runes, never splitting a multi-byte rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string([]rune(s)[:n]))
}
