package domain

// Persona identifies one of the fixed negotiation-counterpart profiles.
type Persona string

const (
	PersonaBossPragmatic     Persona = "boss_pragmatic"
	PersonaHRCold            Persona = "hr_cold"
	PersonaBossEmpathic      Persona = "boss_empathic"
	PersonaFinanceController Persona = "finance_controller"
	PersonaPlantManager      Persona = "plant_manager_ops_senior"
)

// AllPersonas lists the supported counterpart profiles.
var AllPersonas = []Persona{
	PersonaBossPragmatic,
	PersonaHRCold,
	PersonaBossEmpathic,
	PersonaFinanceController,
	PersonaPlantManager,
}

// Known reports whether p is one of the enumerated personas. Unknown
// personas are still accepted at session start and get the generic
// opening line.
func (p Persona) Known() bool {
	for _, known := range AllPersonas {
		if p == known {
			return true
		}
	}
	return false
}
