package domain

import (
	"encoding/json"
	"time"
)

// ConversationState es el view model completo de una conversacion.
// StateBlob es el estado opaco del backend: se reenvia tal cual en cada
// request y nunca se interpreta aqui; los campos conocidos para display se
// leen via backend.StateView.
type ConversationState struct {
	UserID           string            `json:"user_id"`
	SessionID        string            `json:"session_id"`
	Messages         []Message         `json:"messages"`
	Assessments      []TraitAssessment `json:"assessments"`
	CurrentPriority  string            `json:"current_priority,omitempty"`
	CurrentIteration *int              `json:"current_iteration,omitempty"`
	StateBlob        json.RawMessage   `json:"state_blob,omitempty"`
	Terminated       bool              `json:"terminated"`
	PersonaSummary   string            `json:"persona_summary,omitempty"`
}

// Clone copia el estado para que las transiciones no compartan slices.
func (s ConversationState) Clone() ConversationState {
	next := s
	next.Messages = append([]Message(nil), s.Messages...)
	next.Assessments = append([]TraitAssessment(nil), s.Assessments...)
	next.StateBlob = append(json.RawMessage(nil), s.StateBlob...)
	if s.CurrentIteration != nil {
		v := *s.CurrentIteration
		next.CurrentIteration = &v
	}
	return next
}

// CountForTrait cuenta las evaluaciones ya materializadas de un rasgo.
func (s ConversationState) CountForTrait(trait string) int {
	n := 0
	for _, a := range s.Assessments {
		if a.Trait == trait {
			n++
		}
	}
	return n
}

// LastAssessmentTime devuelve el timestamp sintetico mas reciente.
func (s ConversationState) LastAssessmentTime() time.Time {
	var last time.Time
	for _, a := range s.Assessments {
		if a.Timestamp.After(last) {
			last = a.Timestamp
		}
	}
	return last
}
