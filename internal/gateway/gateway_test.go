package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"negociasmart/pkg/ai"
	"negociasmart/pkg/domain"
)

// fakeGenerator implements ai.Generator with canned behavior.
type fakeGenerator struct {
	text     string
	jsonBody string
	err      error

	lastSystemPrompt string
	lastUserPrompt   string
}

func (f *fakeGenerator) GenerateText(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastSystemPrompt = systemPrompt
	f.lastUserPrompt = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, systemPrompt, userPrompt string, _ *ai.Schema, out any) error {
	f.lastSystemPrompt = systemPrompt
	f.lastUserPrompt = userPrompt
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.jsonBody), out)
}

func offlineGateway(opts ...Option) *Gateway {
	return New(nil, append([]Option{WithFallbackPauses(0, 0)}, opts...)...)
}

var testCase = domain.Case{
	ID:            "case-a",
	CurrentRole:   "Operador",
	CurrentSalary: 1650,
	TargetSalary:  1900,
	CurrencyCode:  "EUR",
	Achievements:  "Protocolo LOTO",
}

func TestGeneratePlanFallbackWithoutCredential(t *testing.T) {
	g := offlineGateway()
	plan := g.GeneratePlan(context.Background(), testCase)
	if plan.AnchorAmount != 1950 {
		t.Fatalf("fallback anchor = %v, want 1950", plan.AnchorAmount)
	}
	if plan.TargetRange != "1850 - 1950" {
		t.Fatalf("fallback target range = %q", plan.TargetRange)
	}
	if len(plan.AnticipatedObjections) != 2 {
		t.Fatalf("fallback objections = %d, want 2", len(plan.AnticipatedObjections))
	}
}

func TestGeneratePlanFallbackOnServiceError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	g := New(gen, WithFallbackPauses(0, 0))
	plan := g.GeneratePlan(context.Background(), testCase)
	if plan.AnchorAmount != 1950 {
		t.Fatalf("fallback anchor = %v, want 1950", plan.AnchorAmount)
	}
}

func TestGeneratePlanSuccess(t *testing.T) {
	gen := &fakeGenerator{jsonBody: `{"anchor_amount": 2000, "target_range": "1900 - 2000", "evidence_bullets": ["a"]}`}
	g := New(gen, WithFallbackPauses(0, 0))
	plan := g.GeneratePlan(context.Background(), testCase)
	if plan.AnchorAmount != 2000 {
		t.Fatalf("anchor = %v, want 2000", plan.AnchorAmount)
	}
	if !strings.Contains(gen.lastUserPrompt, "Operador") {
		t.Fatalf("plan prompt missing role: %q", gen.lastUserPrompt)
	}
	if !strings.Contains(gen.lastUserPrompt, "EUR") {
		t.Fatalf("plan prompt missing currency: %q", gen.lastUserPrompt)
	}
}

func TestOpeningLines(t *testing.T) {
	g := offlineGateway()
	if got := g.OpeningLine(domain.PersonaFinanceController); !strings.Contains(got, "los números no cuadran con el presupuesto actual") {
		t.Fatalf("finance_controller greeting = %q", got)
	}
	if got := g.OpeningLine(domain.PersonaBossPragmatic); got != "Tienes 5 minutos. ¿Qué es tan urgente?" {
		t.Fatalf("boss_pragmatic greeting = %q", got)
	}
	if got := g.OpeningLine(domain.Persona("nonsense")); got != "Hola. Pasa." {
		t.Fatalf("generic greeting = %q", got)
	}
}

func TestReplyFallbackDrawsFromPoolWithMarker(t *testing.T) {
	picks := []int{2, 0}
	i := 0
	g := offlineGateway(WithRand(func(n int) int {
		if n != len(offlineTurnLines) {
			t.Fatalf("pick bound = %d, want %d", n, len(offlineTurnLines))
		}
		p := picks[i%len(picks)]
		i++
		return p
	}))
	sess := domain.Session{ID: "s1", Persona: domain.PersonaHRCold}

	first := g.Reply(context.Background(), sess, testCase, nil, false)
	if first != OfflineMarker+offlineTurnLines[2] {
		t.Fatalf("first fallback reply = %q", first)
	}
	second := g.Reply(context.Background(), sess, testCase, nil, false)
	if second != OfflineMarker+offlineTurnLines[0] {
		t.Fatalf("second fallback reply = %q", second)
	}
}

func TestReplyBuildsPersonaPromptAndTranscript(t *testing.T) {
	gen := &fakeGenerator{text: "¿Y qué retorno me ofreces a cambio?"}
	g := New(gen, WithFallbackPauses(0, 0))
	sess := domain.Session{ID: "s1", Persona: domain.PersonaFinanceController}
	history := []domain.Message{
		{Role: domain.RoleAssistant, Content: "He visto tu solicitud."},
		{Role: domain.RoleUser, Content: "Quiero hablar de mi salario."},
	}
	reply := g.Reply(context.Background(), sess, testCase, history, false)
	if reply != "¿Y qué retorno me ofreces a cambio?" {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(gen.lastSystemPrompt, "Finanzas/Controller") {
		t.Fatalf("system prompt missing persona profile: %q", gen.lastSystemPrompt)
	}
	if !strings.Contains(gen.lastSystemPrompt, "NO eres un coach") {
		t.Fatal("system prompt missing interaction rules")
	}
	if !strings.Contains(gen.lastUserPrompt, "USER: Quiero hablar de mi salario.") {
		t.Fatalf("user prompt missing transcript line: %q", gen.lastUserPrompt)
	}
}

func TestReplyClosingDirective(t *testing.T) {
	gen := &fakeGenerator{text: "Ha sido un placer. Seguimos en contacto."}
	g := New(gen, WithFallbackPauses(0, 0))
	sess := domain.Session{ID: "s1", Persona: domain.PersonaBossEmpathic}
	g.Reply(context.Background(), sess, testCase, nil, true)
	if !strings.Contains(gen.lastSystemPrompt, "despídete") {
		t.Fatal("closing directive missing from system prompt")
	}
}

func TestScoreShortTranscriptAlwaysFallsBack(t *testing.T) {
	// Even with a working generator, a short transcript must yield the
	// fixed fallback score.
	gen := &fakeGenerator{jsonBody: `{"total_score": 99}`}
	g := New(gen, WithFallbackPauses(0, 0))
	sess := domain.Session{ID: "s1", Persona: domain.PersonaHRCold}
	history := []domain.Message{{Role: domain.RoleUser, Content: "Hola"}}

	score := g.Score(context.Background(), sess, history)
	if score.TotalScore != 65 {
		t.Fatalf("short-transcript score = %v, want 65", score.TotalScore)
	}
	if gen.lastUserPrompt != "" {
		t.Fatal("generator must not be called for a short transcript")
	}
}

func TestScoreFallbackShape(t *testing.T) {
	g := offlineGateway()
	long := strings.Repeat("argumento sólido ", 10)
	history := []domain.Message{{Role: domain.RoleUser, Content: long}}
	score := g.Score(context.Background(), domain.Session{ID: "s1"}, history)
	if score.TotalScore != 65 {
		t.Fatalf("fallback total = %v, want 65", score.TotalScore)
	}
	for _, key := range domain.ScoreCriteria {
		if _, ok := score.CriteriaBreakdown[key]; !ok {
			t.Fatalf("fallback breakdown missing criterion %q", key)
		}
	}
	if len(score.TopMistakes) != 3 {
		t.Fatalf("fallback mistakes = %d, want 3", len(score.TopMistakes))
	}
}

func TestScoreSuccessUsesPersonaNote(t *testing.T) {
	gen := &fakeGenerator{jsonBody: `{"total_score": 82, "criteria_breakdown": {"anchoring": 4}}`}
	g := New(gen, WithFallbackPauses(0, 0))
	sess := domain.Session{ID: "s1", Persona: domain.PersonaPlantManager}
	history := []domain.Message{{Role: domain.RoleUser, Content: strings.Repeat("evidencia de resultados ", 5)}}

	score := g.Score(context.Background(), sess, history)
	if score.TotalScore != 82 {
		t.Fatalf("score = %v, want 82", score.TotalScore)
	}
	if !strings.Contains(gen.lastUserPrompt, "plant_manager_ops_senior") {
		t.Fatal("score prompt missing persona evaluation note")
	}
}

func TestTemplateFallback(t *testing.T) {
	g := offlineGateway()
	tmpl := g.Template(context.Background(), testCase, domain.TemplateMeetingRequest)
	if tmpl.Subject != "Solicitud de reunión (Offline)" {
		t.Fatalf("fallback subject = %q", tmpl.Subject)
	}
	if tmpl.Body == "" {
		t.Fatal("fallback body empty")
	}
}

func TestTemplateSuccess(t *testing.T) {
	gen := &fakeGenerator{jsonBody: `{"subject": "Reunión", "body": "Hola, ..."}`}
	g := New(gen, WithFallbackPauses(0, 0))
	tmpl := g.Template(context.Background(), testCase, domain.TemplateClosing)
	if tmpl.Subject != "Reunión" {
		t.Fatalf("subject = %q", tmpl.Subject)
	}
	if !strings.Contains(gen.lastUserPrompt, "closing") {
		t.Fatalf("template prompt missing type: %q", gen.lastUserPrompt)
	}
}

func TestFallbackPauseRespectsContext(t *testing.T) {
	g := New(nil, WithFallbackPauses(5*time.Second, 5*time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_ = g.GeneratePlan(ctx, testCase)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancelled context still paused %v", elapsed)
	}
}
