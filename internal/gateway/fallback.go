package gateway

import "negociasmart/pkg/domain"

// OfflineMarker prefixes every fallback roleplay reply so transcripts
// show which turns were generated without the service.
const OfflineMarker = "(Modo Offline) "

// offlineTurnLines is the fixed pool a fallback turn is drawn from.
var offlineTurnLines = []string{
	"Entiendo tu punto, pero el presupuesto está cerrado este año.",
	"Es una cifra alta comparada con la media del equipo.",
	"Necesito que me justifiques mejor ese número con resultados tangibles.",
	"Déjame consultarlo con dirección, pero no prometo nada.",
}

func fallbackPlan() domain.NegotiationPlan {
	return domain.NegotiationPlan{
		AnchorAmount:    1950,
		TargetRange:     "1850 - 1950",
		OpeningArgument: "En los últimos 6 meses, he garantizado 0 incidentes y optimizado los arranques un 15%.",
		EvidenceBullets: []string{
			"Reducción de tiempos 15%",
			"Protocolo LOTO",
			"Formación nuevos operadores",
		},
		AnticipatedObjections: []domain.Objection{
			{Objection: "Fuera de ciclo", Response: "Entiendo, pero el ahorro generado justifica la excepción."},
			{Objection: "Sin presupuesto", Response: "El ajuste se cubre con la reducción de costes lograda."},
		},
		ConcessionsStrategy: "Aceptar bonus por productividad si no hay subida fija.",
		BATNA:               "Buscar oportunidades con certificación actual.",
		ClosingStatement:    "¿Podemos formalizar esto para el próximo mes?",
	}
}

func fallbackScore() domain.Score {
	return domain.Score{
		TotalScore: 65,
		CriteriaBreakdown: map[string]int{
			"anchoring":         2,
			"clarity":           3,
			"value_evidence":    3,
			"questions":         2,
			"objections":        2,
			"concessions":       2,
			"emotional_control": 4,
			"silence":           1,
			"closing":           2,
		},
		TopMistakes: []string{"Faltó anclar alto", "Cediste rápido", "No usaste silencios"},
		TopImprovements: []domain.Improvement{
			{Concept: "Silencios", ExamplePhrase: "..."},
		},
		RecommendedPhrases: []string{"¿Qué flexibilidad tenemos?"},
	}
}

func fallbackTemplate() domain.EmailTemplate {
	return domain.EmailTemplate{
		Subject: "Solicitud de reunión (Offline)",
		Body:    "Hola, me gustaría agendar una reunión para revisar mi salario...",
	}
}
