package domain

import "time"

type PlanTier string

const (
	TierFree PlanTier = "free"
	TierPro  PlanTier = "pro"
)

// Message roles within a roleplay session.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Tier         PlanTier  `json:"tier"`
	CasesCount   int       `json:"cases_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u UserProfile) IsPro() bool {
	return u.Tier == TierPro
}

type Case struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Title           string           `json:"title"`
	CurrentRole     string           `json:"current_role"`
	CurrentSalary   float64          `json:"current_salary"`
	TargetSalary    float64          `json:"target_salary"`
	CurrencyCode    string           `json:"currency_code"`
	Achievements    string           `json:"achievements"`
	NegotiationDate string           `json:"negotiation_date"`
	Plan            *NegotiationPlan `json:"plan,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// NegotiationPlan is the generated strategy attached to a case.
// Field names follow the structured-output schema of the generation
// service; a plan is replaced wholesale on regeneration, never edited.
type NegotiationPlan struct {
	AnchorAmount          float64     `json:"anchor_amount"`
	TargetRange           string      `json:"target_range"`
	OpeningArgument       string      `json:"opening_argument"`
	EvidenceBullets       []string    `json:"evidence_bullets"`
	AnticipatedObjections []Objection `json:"anticipated_objections"`
	ConcessionsStrategy   string      `json:"concessions_strategy"`
	BATNA                 string      `json:"batna"`
	ClosingStatement      string      `json:"closing_statement"`
}

type Objection struct {
	Objection string `json:"objection"`
	Response  string `json:"response"`
}

type Session struct {
	ID         string    `json:"id"`
	CaseID     string    `json:"case_id"`
	Persona    Persona   `json:"persona_type"`
	Difficulty string    `json:"difficulty_level"`
	TurnCount  int       `json:"turn_count"`
	Completed  bool      `json:"is_completed"`
	CreatedAt  time.Time `json:"created_at"`
}

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Score is the post-session evaluation. CriteriaBreakdown carries the
// fixed rubric keys listed in ScoreCriteria.
type Score struct {
	TotalScore         float64        `json:"total_score"`
	CriteriaBreakdown  map[string]int `json:"criteria_breakdown"`
	TopMistakes        []string       `json:"top_3_mistakes"`
	TopImprovements    []Improvement  `json:"top_3_improvements"`
	RecommendedPhrases []string       `json:"recommended_phrases_future"`
}

type Improvement struct {
	Concept       string `json:"concept"`
	ExamplePhrase string `json:"example_phrase"`
}

// ScoreCriteria lists the rubric keys in report order.
var ScoreCriteria = []string{
	"anchoring",
	"clarity",
	"value_evidence",
	"questions",
	"objections",
	"concessions",
	"emotional_control",
	"silence",
	"closing",
}

type EmailTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type TemplateType string

const (
	TemplateMeetingRequest TemplateType = "meeting_request"
	TemplateClosing        TemplateType = "closing"
	TemplateRaiseRequest   TemplateType = "raise_request"
	TemplateFollowUp       TemplateType = "follow_up"
)
