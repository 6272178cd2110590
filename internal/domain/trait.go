package domain

import "time"

// Identificadores fijos de los seis rasgos financieros que reporta el backend.
const (
	TraitAwareness                = "awareness"
	TraitSelfControl              = "self_control"
	TraitPreparedness             = "preparedness"
	TraitInformationSeeking       = "information_seeking"
	TraitRiskSeeking              = "risk_seeking"
	TraitReactionToExternalEvents = "reaction_to_external_events"
)

// TraitIDs conserva el orden canonico usado para reconciliar y resumir.
var TraitIDs = []string{
	TraitAwareness,
	TraitSelfControl,
	TraitPreparedness,
	TraitInformationSeeking,
	TraitRiskSeeking,
	TraitReactionToExternalEvents,
}

// TraitAssessment es una evaluacion puntual decodificada de una respuesta del
// backend. Nunca se muta despues de creada; solo se agregan nuevas.
type TraitAssessment struct {
	ID         string    `json:"id"`
	Trait      string    `json:"trait"`
	Score      *float64  `json:"score,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Sentence   string    `json:"sentence,omitempty"`
	Rationale  string    `json:"rationale,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HasContent indica si la evaluacion trae algo mostrable.
func (a TraitAssessment) HasContent() bool {
	return a.Sentence != "" || a.Score != nil || a.Rationale != ""
}

// TraitSummary resume todas las evaluaciones con score de un rasgo.
type TraitSummary struct {
	Trait      string  `json:"trait"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Samples    int     `json:"samples"`
}
