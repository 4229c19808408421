// Package gateway mediates between domain state and the external
// generation service. Every public operation is total: any failure
// (missing credential, service error, malformed response, insufficient
// history) resolves to a fixed, schema-compatible fallback value and
// never reaches the caller as an error.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"negociasmart/pkg/ai"
	"negociasmart/pkg/domain"
)

// MinTranscriptChars is the minimum rendered transcript length a
// session needs before real scoring is attempted. Anything shorter is
// treated the same as a service failure.
const MinTranscriptChars = 50

var errNoCredential = errors.New("generation service not configured")
var errShortTranscript = errors.New("insufficient conversation history")

// Gateway wraps the generation service with prompt building, schema
// parsing, and the fallback policy.
type Gateway struct {
	gen        ai.Generator // nil means no credential: permanent fallback mode
	pick       func(n int) int
	slowPause  time.Duration // plan and score fallbacks
	quickPause time.Duration // turn and template fallbacks
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithRand injects the random source used for fallback line selection.
func WithRand(pick func(n int) int) Option {
	return func(g *Gateway) { g.pick = pick }
}

// WithFallbackPauses overrides the artificial delays applied before a
// fallback value is returned, keeping perceived latency close to the
// success path. Tests pass zero.
func WithFallbackPauses(slow, quick time.Duration) Option {
	return func(g *Gateway) {
		g.slowPause = slow
		g.quickPause = quick
	}
}

// New builds a Gateway. gen may be nil when no API credential is
// configured; that is a normal condition, not an error.
func New(gen ai.Generator, opts ...Option) *Gateway {
	g := &Gateway{
		gen:        gen,
		pick:       rand.Intn,
		slowPause:  1500 * time.Millisecond,
		quickPause: 1000 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GeneratePlan builds a negotiation plan for the case.
func (g *Gateway) GeneratePlan(ctx context.Context, c domain.Case) domain.NegotiationPlan {
	plan, err := g.generatePlan(ctx, c)
	if err != nil {
		g.degrade(ctx, "plan", err, g.slowPause)
		return fallbackPlan()
	}
	return plan
}

func (g *Gateway) generatePlan(ctx context.Context, c domain.Case) (domain.NegotiationPlan, error) {
	if g.gen == nil {
		return domain.NegotiationPlan{}, errNoCredential
	}
	var plan domain.NegotiationPlan
	if err := g.gen.GenerateJSON(ctx, "", planPrompt(c), planSchema, &plan); err != nil {
		return domain.NegotiationPlan{}, err
	}
	return plan, nil
}

// OpeningLine returns the persona's fixed greeting; unrecognized
// personas get the generic one. No external call is made.
func (g *Gateway) OpeningLine(p domain.Persona) string {
	if line, ok := openingLines[p]; ok {
		return line
	}
	return genericOpeningLine
}

// Reply produces the counterpart's next in-character turn given the
// full chronological transcript (the latest user message included).
// closing asks for a final farewell turn.
func (g *Gateway) Reply(ctx context.Context, sess domain.Session, c domain.Case, history []domain.Message, closing bool) string {
	text, err := g.generateReply(ctx, sess, c, history, closing)
	if err != nil {
		g.degrade(ctx, "turn", err, g.quickPause)
		return OfflineMarker + offlineTurnLines[g.pick(len(offlineTurnLines))]
	}
	return text
}

func (g *Gateway) generateReply(ctx context.Context, sess domain.Session, c domain.Case, history []domain.Message, closing bool) (string, error) {
	if g.gen == nil {
		return "", errNoCredential
	}
	return g.gen.GenerateText(ctx, turnSystemPrompt(sess, c, closing), turnUserPrompt(Transcript(history)))
}

// Score evaluates the session transcript against the fixed rubric.
func (g *Gateway) Score(ctx context.Context, sess domain.Session, history []domain.Message) domain.Score {
	score, err := g.generateScore(ctx, sess, history)
	if err != nil {
		g.degrade(ctx, "score", err, g.slowPause)
		return fallbackScore()
	}
	return score
}

func (g *Gateway) generateScore(ctx context.Context, sess domain.Session, history []domain.Message) (domain.Score, error) {
	transcript := Transcript(history)
	if len(transcript) < MinTranscriptChars {
		return domain.Score{}, errShortTranscript
	}
	if g.gen == nil {
		return domain.Score{}, errNoCredential
	}
	var score domain.Score
	if err := g.gen.GenerateJSON(ctx, "", scorePrompt(sess, transcript), scoreSchema, &score); err != nil {
		return domain.Score{}, err
	}
	return score, nil
}

// Template composes a short professional email for the given type.
func (g *Gateway) Template(ctx context.Context, c domain.Case, t domain.TemplateType) domain.EmailTemplate {
	tmpl, err := g.generateTemplate(ctx, c, t)
	if err != nil {
		g.degrade(ctx, "template", err, g.quickPause)
		return fallbackTemplate()
	}
	return tmpl
}

func (g *Gateway) generateTemplate(ctx context.Context, c domain.Case, t domain.TemplateType) (domain.EmailTemplate, error) {
	if g.gen == nil {
		return domain.EmailTemplate{}, errNoCredential
	}
	var tmpl domain.EmailTemplate
	if err := g.gen.GenerateJSON(ctx, "", templatePrompt(c, t), templateSchema, &tmpl); err != nil {
		return domain.EmailTemplate{}, err
	}
	return tmpl, nil
}

// degrade logs the substitution and pauses so the fallback path keeps
// latency parity with a real generation.
func (g *Gateway) degrade(ctx context.Context, op string, err error, pause time.Duration) {
	slog.Warn("generation fallback", "op", op, "err", err)
	if pause <= 0 {
		return
	}
	select {
	case <-time.After(pause):
	case <-ctx.Done():
	}
}
