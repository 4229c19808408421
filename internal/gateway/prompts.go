package gateway

import (
	"fmt"
	"strings"

	"negociasmart/pkg/domain"
)

// personaScript holds one counterpart's behavioral profile as data.
// The ladder is the order in which objections are escalated.
type personaScript struct {
	Profile     string
	Goal        string
	Style       string
	Objections  []string
	Concessions string
	Phrases     []string
	RedFlags    string
}

var personaScripts = map[domain.Persona]personaScript{
	domain.PersonaBossPragmatic: {
		Profile:     "Jefe pragmático industrial. Te importan los costes, el presupuesto y los precedentes.",
		Style:       "Seco, directo, escéptico.",
		Objections:  []string{"no hay presupuesto", "estamos fuera de ciclo", "demuéstrame el ROI"},
		Concessions: "Pequeños ajustes si hay evidencia clara de ahorro.",
	},
	domain.PersonaHRCold: {
		Profile:     "RRHH frío y burocrático.",
		Style:       "Formal, distante, escudo en las normas.",
		Objections:  []string{"bandas salariales", "política de empresa", "equidad interna"},
		Concessions: "Ninguna monetaria directa fuera de ciclo. Quizás formación.",
	},
	domain.PersonaBossEmpathic: {
		Profile:     "Jefe empático pero sin poder.",
		Style:       "Amable, escucha activa, apologético ('manos atadas').",
		Objections:  []string{"me encantaría pero dirección no aprueba", "no es el momento"},
		Concessions: "Días libres, flexibilidad, promesas a futuro.",
	},
	domain.PersonaFinanceController: {
		Profile: "Finanzas/Controller.",
		Goal:    "Proteger el presupuesto y evitar precedentes peligrosos.",
		Style:   "Analítico, sobrio, enfocado 100% en números. No le importan los sentimientos, solo el ROI.",
		Objections: []string{
			"No está en presupuesto este año.",
			"Si te lo doy a ti, se rompe la estructura de costes.",
			"Tu impacto no justifica ese incremento fijo.",
			"Estamos fuera de ciclo fiscal.",
			"Solo puedo autorizar un bono variable puntual, nada consolidable.",
		},
		Phrases:  []string{"¿Cuál es el retorno de esa inversión?", "Hablamos de variable, no de fijo."},
		RedFlags: "No prometas nada sin ver un Excel mental de retorno.",
	},
	domain.PersonaPlantManager: {
		Profile: "Jefe de Planta / Operaciones Senior.",
		Goal:    "Retener talento clave para que la planta no pare, pero manteniendo la equidad interna con otros operarios.",
		Style:   "Directo pero humano. Valora seguridad, LOTO, continuidad y formación.",
		Objections: []string{
			"Necesito evidencia dura para pelearlo con RRHH.",
			"No puedo romper la banda de tu categoría.",
			"Si te subo a ti, tengo a 20 más en la puerta mañana.",
			"Te ofrezco un plan de crecimiento a 6 meses.",
			"Esto es lo máximo que puedo hacer por ahora.",
		},
		Concessions: "Plan con KPIs, revisión en 12 semanas, formación certificada.",
		Phrases:     []string{"No me pares la línea", "Ayúdame a ayudarte con RRHH."},
	},
}

// openingLines maps each persona to its fixed first assistant message.
var openingLines = map[domain.Persona]string{
	domain.PersonaBossPragmatic:     "Tienes 5 minutos. ¿Qué es tan urgente?",
	domain.PersonaHRCold:            "Hola. Si es sobre la revisión salarial, recuerda que el ciclo está cerrado. Te escucho.",
	domain.PersonaBossEmpathic:      "Hola, ¿cómo estás? Me imagino por qué vienes. Cuéntame.",
	domain.PersonaFinanceController: "He visto tu solicitud. Vamos directos al grano: los números no cuadran con el presupuesto actual. ¿Por qué deberíamos hacer una excepción?",
	domain.PersonaPlantManager:      "Pasa. Mira, valoro tu trabajo en planta, pero RRHH me tiene atado con las bandas. ¿Qué propones que sea justo para todos?",
}

const genericOpeningLine = "Hola. Pasa."

func (s personaScript) render() string {
	var sb strings.Builder
	sb.WriteString("Perfil: " + s.Profile + "\n")
	if s.Goal != "" {
		sb.WriteString("Objetivo: " + s.Goal + "\n")
	}
	sb.WriteString("Estilo: " + s.Style + "\n")
	sb.WriteString("Objeciones (Escalera):\n")
	for i, obj := range s.Objections {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, obj)
	}
	if s.Concessions != "" {
		sb.WriteString("Concesiones: " + s.Concessions + "\n")
	}
	if s.RedFlags != "" {
		sb.WriteString("Red Flags: " + s.RedFlags + "\n")
	}
	if len(s.Phrases) > 0 {
		sb.WriteString("Frases típicas: \"" + strings.Join(s.Phrases, "\", \"") + "\"\n")
	}
	return sb.String()
}

func planPrompt(c domain.Case) string {
	return fmt.Sprintf(
		"Genera un plan de negociación salarial en JSON.\n"+
			"Rol: %s. Salario actual: %.0f. Objetivo: %.0f.\n"+
			"Logros: %s.\n"+
			"Moneda: %s.\n"+
			"El tono debe ser profesional y estratégico para el sector industrial.",
		c.CurrentRole, c.CurrentSalary, c.TargetSalary, c.Achievements, c.CurrencyCode,
	)
}

func turnSystemPrompt(sess domain.Session, c domain.Case, closing bool) string {
	script, ok := personaScripts[sess.Persona]
	if !ok {
		// Unknown personas negotiate with the generic pragmatic profile.
		script = personaScripts[domain.PersonaBossPragmatic]
	}
	var sb strings.Builder
	sb.WriteString("ACTÚA COMO:\n")
	sb.WriteString(script.render())
	sb.WriteString("\nCONTEXTO:\n")
	fmt.Fprintf(&sb, "Estás negociando con un empleado (%s) en un entorno industrial/operaciones.\n", c.CurrentRole)
	fmt.Fprintf(&sb, "Salario actual: %.0f. Objetivo del empleado: %.0f.\n", c.CurrentSalary, c.TargetSalary)
	fmt.Fprintf(&sb, "Logros del empleado: %q.\n", c.Achievements)
	sb.WriteString("\nREGLAS DE INTERACCIÓN:\n")
	sb.WriteString("1. ERES LA CONTRAPARTE. NO eres un coach. NO des consejos. Simplemente negocia.\n")
	sb.WriteString("2. Mantén el personaje estrictamente. Usa el tono definido.\n")
	sb.WriteString("3. Responde al último mensaje del usuario basándote en el historial.\n")
	sb.WriteString("4. TUS RESPUESTAS: Máximo 3 frases. Conversacionales. Idioma: Español neutro/España.\n")
	sb.WriteString("5. OBSTÁCULOS: Pon una objeción realista del sector industrial o haz una pregunta de descubrimiento en cada turno.\n")
	sb.WriteString("6. NO aceptes la primera oferta. Solo cede si el argumento es muy sólido y acorde a tu perfil.\n")
	if closing {
		sb.WriteString("7. La reunión ha terminado: despídete en personaje, resume tu posición final y cierra la conversación.\n")
	}
	return sb.String()
}

func turnUserPrompt(transcript string) string {
	return "HISTORIAL DE LA CONVERSACIÓN:\n" + transcript + "\n\nTU TURNO (Responde como el personaje):"
}

func scorePrompt(sess domain.Session, transcript string) string {
	var sb strings.Builder
	sb.WriteString("Evalúa esta negociación salarial basándote en la rúbrica (Anclaje, Claridad, Evidencia, Control Emocional).\n")
	sb.WriteString("Transcripción:\n")
	sb.WriteString(transcript)
	sb.WriteString("\n\nNOTA ADICIONAL DE EVALUACIÓN:\n")
	switch sess.Persona {
	case domain.PersonaFinanceController:
		sb.WriteString("El oponente era 'finance_controller': valora positivamente si el usuario usó datos numéricos y ROI.\n")
	case domain.PersonaPlantManager:
		sb.WriteString("El oponente era 'plant_manager_ops_senior': valora positivamente si el usuario habló de compromiso a largo plazo y equidad.\n")
	}
	return sb.String()
}

func templatePrompt(c domain.Case, t domain.TemplateType) string {
	return fmt.Sprintf(
		"Genera un email corto y profesional para: %s. Rol: %s. Objetivo: %.0f. Logros: %s.",
		t, c.CurrentRole, c.TargetSalary, c.Achievements,
	)
}

// Transcript renders the chronological message history the way it is
// fed to the generation service and measured against the scoring
// minimum: one "ROLE: content" line per message.
func Transcript(history []domain.Message) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, strings.ToUpper(msg.Role)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}
