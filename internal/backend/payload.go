package backend

import (
	"encoding/json"

	"fintrait-chat/internal/domain"
)

// StateView expone los campos conocidos del blob opaco de estado, solo para
// display. Cualquier otro campo del blob se ignora sin error: el backend
// puede extenderlo libremente.
type StateView struct {
	ContinueConversation bool
	Persona              string
	CurrentPriority      string
	CurrentIteration     *int
	Traits               map[string]TraitArrays
}

// TraitArrays son los cuatro arreglos paralelos que el backend reporta por rasgo.
type TraitArrays struct {
	Scores      []float64
	Confidences []float64
	Sentences   []string
	Rationale   []string
}

// MaxLen devuelve el largo maximo entre los cuatro arreglos.
func (t TraitArrays) MaxLen() int {
	max := len(t.Scores)
	if len(t.Confidences) > max {
		max = len(t.Confidences)
	}
	if len(t.Sentences) > max {
		max = len(t.Sentences)
	}
	if len(t.Rationale) > max {
		max = len(t.Rationale)
	}
	return max
}

// DecodeStateView lee los campos conocidos del blob. Campos ausentes o
// malformados se toleran en silencio: arreglos ausentes quedan vacios y
// continue_conversation solo termina la conversacion si viene explicito en false.
func DecodeStateView(blob json.RawMessage) StateView {
	view := StateView{
		ContinueConversation: true,
		Traits:               make(map[string]TraitArrays, len(domain.TraitIDs)),
	}

	var fields map[string]json.RawMessage
	if len(blob) == 0 || json.Unmarshal(blob, &fields) != nil {
		return view
	}

	if raw, ok := fields["continue_conversation"]; ok {
		var cont bool
		if json.Unmarshal(raw, &cont) == nil {
			view.ContinueConversation = cont
		}
	}
	if raw, ok := fields["persona"]; ok {
		_ = json.Unmarshal(raw, &view.Persona)
	}
	if raw, ok := fields["current_priority"]; ok {
		_ = json.Unmarshal(raw, &view.CurrentPriority)
	}
	if raw, ok := fields["current_iteration"]; ok {
		var iter int
		if json.Unmarshal(raw, &iter) == nil {
			view.CurrentIteration = &iter
		}
	}

	for _, trait := range domain.TraitIDs {
		var arrays TraitArrays
		decodeFloats(fields[trait+"_score"], &arrays.Scores)
		decodeFloats(fields[trait+"_confidence"], &arrays.Confidences)
		decodeStrings(fields[trait+"_sentences"], &arrays.Sentences)
		decodeStrings(fields[trait+"_rationale"], &arrays.Rationale)
		view.Traits[trait] = arrays
	}

	return view
}

func decodeFloats(raw json.RawMessage, dst *[]float64) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, dst)
}

func decodeStrings(raw json.RawMessage, dst *[]string) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, dst)
}
