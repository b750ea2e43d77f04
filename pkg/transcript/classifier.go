// Package transcript consumes one session's event stream, renders it
// for the operator, and classifies the session's terminal state.
package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/harun/vigil/pkg/agent"
	"github.com/harun/vigil/pkg/ratelimit"
)

// Outcome is a session's terminal state.
type Outcome int

const (
	// OutcomeContinue means the agent finished its turn normally and
	// the loop should keep going.
	OutcomeContinue Outcome = iota
	// OutcomeRateLimited means the agent reported quota exhaustion.
	OutcomeRateLimited
	// OutcomeError means the stream failed in transport; the session
	// should be retried fresh.
	OutcomeError
)

// String renders the outcome for logs and the ledger.
func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	maxRenderedInput = 200
	maxRenderedError = 500
)

// Classification is the result of consuming one session.
type Classification struct {
	Outcome Outcome

	// ResponseText is the concatenated assistant prose, kept only for
	// rate-limit detection.
	ResponseText string

	// ResumeAt is the parsed quota-reset instant when Outcome is
	// OutcomeRateLimited and the message carried one.
	ResumeAt    time.Time
	ResumeKnown bool

	// Err describes the transport failure when Outcome is
	// OutcomeError.
	Err error
}

// Classifier turns event streams into classifications.
type Classifier struct {
	out    io.Writer
	logger zerolog.Logger
	now    func() time.Time
}

// NewClassifier creates a classifier writing operator output to out.
func NewClassifier(out io.Writer, logger zerolog.Logger) *Classifier {
	return &Classifier{
		out:    out,
		logger: logger.With().Str("component", "transcript").Logger(),
		now:    time.Now,
	}
}

// Consume drains the session's event stream, echoing it for the
// operator, then classifies the outcome. Tool traffic is rendered but
// never buffered: quota messages only ever appear in assistant prose.
func (c *Classifier) Consume(sess agent.Session) Classification {
	var response strings.Builder

	for ev := range sess.Events() {
		switch ev.Kind {
		case agent.EventAssistantText:
			response.WriteString(ev.Text)
			fmt.Fprint(c.out, ev.Text)

		case agent.EventToolCall:
			fmt.Fprintf(c.out, "\n[Tool: %s]\n", ev.ToolName)
			fmt.Fprintf(c.out, "   Input: %s\n", truncate(ev.ToolInput, maxRenderedInput))

		case agent.EventToolResult:
			c.renderResult(ev)
		}
	}

	fmt.Fprintf(c.out, "\n%s\n", strings.Repeat("-", 70))

	if err := sess.Err(); err != nil {
		// No partial classification on a broken stream.
		return Classification{Outcome: OutcomeError, Err: err}
	}

	text := response.String()
	if resumeAt, ok := ratelimit.DetectResume(text, c.now()); ok {
		return Classification{
			Outcome:      OutcomeRateLimited,
			ResponseText: text,
			ResumeAt:     resumeAt,
			ResumeKnown:  true,
		}
	}
	return Classification{Outcome: OutcomeContinue, ResponseText: text}
}

// renderResult shows a tool result one of three ways: blocked by the
// command validator, failed, or a terse success marker.
func (c *Classifier) renderResult(ev agent.Event) {
	switch {
	case strings.Contains(strings.ToLower(ev.Text), "blocked"):
		fmt.Fprintf(c.out, "   [BLOCKED] %s\n", ev.Text)
	case ev.IsError:
		fmt.Fprintf(c.out, "   [Error] %s\n", truncate(ev.Text, maxRenderedError))
	default:
		fmt.Fprintln(c.out, "   [Done]")
	}
}

// truncate cuts s to at most limit bytes, backing up to a rune
// boundary so the cut never emits invalid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "..."
}
