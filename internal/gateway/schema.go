package gateway

import "negociasmart/pkg/ai"

// Structured-output schemas for the three generation shapes.

var planSchema = ai.Object(map[string]*ai.Schema{
	"anchor_amount":    ai.Number(),
	"target_range":     ai.String(),
	"opening_argument": ai.String(),
	"evidence_bullets": ai.Array(ai.String()),
	"anticipated_objections": ai.Array(ai.Object(map[string]*ai.Schema{
		"objection": ai.String(),
		"response":  ai.String(),
	})),
	"concessions_strategy": ai.String(),
	"batna":                ai.String(),
	"closing_statement":    ai.String(),
})

var scoreSchema = ai.Object(map[string]*ai.Schema{
	"total_score": ai.Number(),
	"criteria_breakdown": ai.Object(map[string]*ai.Schema{
		"anchoring":         ai.Number(),
		"clarity":           ai.Number(),
		"value_evidence":    ai.Number(),
		"questions":         ai.Number(),
		"objections":        ai.Number(),
		"concessions":       ai.Number(),
		"emotional_control": ai.Number(),
		"silence":           ai.Number(),
		"closing":           ai.Number(),
	}),
	"top_3_mistakes": ai.Array(ai.String()),
	"top_3_improvements": ai.Array(ai.Object(map[string]*ai.Schema{
		"concept":        ai.String(),
		"example_phrase": ai.String(),
	})),
	"recommended_phrases_future": ai.Array(ai.String()),
})

var templateSchema = ai.Object(map[string]*ai.Schema{
	"subject": ai.String(),
	"body":    ai.String(),
})
