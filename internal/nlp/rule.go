package nlp

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/actions"
)

// RuleInterpreter is a deterministic, verb-driven parser. It understands a
// small command vocabulary rather than open-ended language, which keeps the
// pipeline testable and the deployment free of external model calls.
type RuleInterpreter struct{}

func NewRuleInterpreter() *RuleInterpreter {
	return &RuleInterpreter{}
}

var (
	createRe   = regexp.MustCompile(`(?i)^(?:add|create|new)\s+(?:a\s+)?(?:task\s+)?(?:to\s+)?(.+)$`)
	remindRe   = regexp.MustCompile(`(?i)^remind\s+me\s+to\s+(.+)$`)
	completeRe = regexp.MustCompile(`^(?:complete|finish)\s+(?:the\s+)?(?:task\s+)?(.+)$`)
	markDoneRe = regexp.MustCompile(`^mark\s+(.+?)\s+(?:as\s+)?(?:done|complete|completed|finished)$`)
	deleteRe   = regexp.MustCompile(`^(?:delete|remove|cancel)\s+(?:the\s+)?(?:task\s+)?(.+)$`)
	renameRe   = regexp.MustCompile(`(?i)^rename\s+(.+?)\s+to\s+(.+)$`)
	updateRe   = regexp.MustCompile(`(?i)^(?:update|change)\s+(.+?)\s+(?:title\s+)?to\s+(.+)$`)
	queryRe    = regexp.MustCompile(`^(?:show|list|what)(?:\s+me)?(?:\s+are)?(?:\s+my)?\s+(.*?)\s*tasks?(?:\s+about\s+(.+?))?\??$`)
)

func (i *RuleInterpreter) Interpret(ctx context.Context, _ uuid.UUID, input string, _ []Message) (*Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input)
	lower := strings.ToLower(text)
	if lower == "" {
		return nil, nil
	}

	if m := renameRe.FindStringSubmatch(text); m != nil {
		title := strings.TrimSpace(m[2])
		return &Proposal{
			Type: actions.ActionUpdate,
			Params: actions.Params{Update: &actions.UpdateParams{
				Target: strings.TrimSpace(m[1]),
				Title:  &title,
			}},
			Confidence: 0.9,
		}, nil
	}
	if m := updateRe.FindStringSubmatch(text); m != nil {
		title := strings.TrimSpace(m[2])
		return &Proposal{
			Type: actions.ActionUpdate,
			Params: actions.Params{Update: &actions.UpdateParams{
				Target: strings.TrimSpace(m[1]),
				Title:  &title,
			}},
			Confidence: 0.8,
		}, nil
	}

	if m := markDoneRe.FindStringSubmatch(lower); m != nil {
		return completeProposal(m[1], 0.9), nil
	}
	if m := completeRe.FindStringSubmatch(lower); m != nil {
		return completeProposal(m[1], 0.85), nil
	}

	if m := deleteRe.FindStringSubmatch(lower); m != nil {
		return &Proposal{
			Type:       actions.ActionDelete,
			Params:     actions.Params{Delete: &actions.TargetParams{Target: strings.TrimSpace(m[1])}},
			Confidence: 0.85,
		}, nil
	}

	if m := queryRe.FindStringSubmatch(lower); m != nil {
		return queryProposal(m[1], m[2]), nil
	}

	if m := remindRe.FindStringSubmatch(text); m != nil {
		return createProposal(m[1], 0.9), nil
	}
	if m := createRe.FindStringSubmatch(text); m != nil {
		return createProposal(m[1], 0.85), nil
	}

	return nil, nil
}

func createProposal(raw string, confidence float64) *Proposal {
	title := strings.TrimSpace(raw)
	if title == "" {
		return nil
	}
	// Capitalize the first rune for display, the way a user would type a
	// task title by hand.
	first, size := utf8.DecodeRuneInString(title)
	title = string(unicode.ToUpper(first)) + title[size:]
	return &Proposal{
		Type:       actions.ActionCreate,
		Params:     actions.Params{Create: &actions.CreateParams{Title: title}},
		Confidence: confidence,
	}
}

func completeProposal(target string, confidence float64) *Proposal {
	return &Proposal{
		Type:       actions.ActionComplete,
		Params:     actions.Params{Complete: &actions.TargetParams{Target: strings.TrimSpace(target)}},
		Confidence: confidence,
	}
}

func queryProposal(qualifier, about string) *Proposal {
	q := &actions.QueryParams{}
	switch {
	case strings.Contains(qualifier, "completed"), strings.Contains(qualifier, "finished"), strings.Contains(qualifier, "done"):
		q.Status = "completed"
	case strings.Contains(qualifier, "pending"), strings.Contains(qualifier, "open"), strings.Contains(qualifier, "remaining"), strings.Contains(qualifier, "unfinished"):
		q.Status = "pending"
	}
	if about != "" {
		q.TitleContains = strings.TrimSpace(about)
	}
	return &Proposal{
		Type:       actions.ActionQuery,
		Params:     actions.Params{Query: q},
		Confidence: 0.75,
	}
}
