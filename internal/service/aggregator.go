package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fintrait-chat/internal/backend"
	"fintrait-chat/internal/domain"
)

// terminateSentinel es la respuesta literal con la que el backend puede
// cerrar la conversacion sin bajar continue_conversation.
const terminateSentinel = "terminate"

// Aggregator pliega respuestas del backend dentro del ConversationState.
// Todas sus operaciones son transiciones puras (estado, evento) -> estado;
// el ConversationController es el unico que las invoca.
type Aggregator struct {
	now func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{now: time.Now}
}

// AppendUserMessage agrega el mensaje del usuario antes de llamar al backend.
func (a *Aggregator) AppendUserMessage(prev domain.ConversationState, text string) domain.ConversationState {
	next := prev.Clone()
	next.Messages = append(next.Messages, domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   text,
		CreatedAt: a.now().UTC(),
	})
	return next
}

// Reconcile produce el siguiente estado a partir de una respuesta del backend.
//
// Por cada rasgo solo se materializa el sufijo de los arreglos que todavia no
// existe localmente: los indices ya cubiertos nunca se re-materializan ni se
// actualizan, asi que re-entregar la misma respuesta no duplica evaluaciones.
func (a *Aggregator) Reconcile(prev domain.ConversationState, res backend.ChatResult) domain.ConversationState {
	next := prev.Clone()
	view := backend.DecodeStateView(res.UpdatedState)

	// Timestamps sinteticos: estrictamente crecientes y posteriores a toda
	// evaluacion previa, para que el orden dentro de un mismo pase sea
	// deterministico.
	ts := a.now().UTC()
	if last := prev.LastAssessmentTime(); !ts.After(last) {
		ts = last.Add(time.Millisecond)
	}

	for _, trait := range domain.TraitIDs {
		arrays := view.Traits[trait]
		existing := prev.CountForTrait(trait)
		maxLen := arrays.MaxLen()

		for i := existing; i < maxLen; i++ {
			sentence := stringAt(arrays.Sentences, i)
			score := floatAt(arrays.Scores, i)
			if sentence == "" && score == nil {
				continue
			}
			next.Assessments = append(next.Assessments, domain.TraitAssessment{
				ID:         uuid.NewString(),
				Trait:      trait,
				Score:      score,
				Confidence: floatAt(arrays.Confidences, i),
				Sentence:   sentence,
				Rationale:  stringAt(arrays.Rationale, i),
				Timestamp:  ts,
			})
			ts = ts.Add(time.Millisecond)
		}
	}

	terminated := !view.ContinueConversation || res.Response == terminateSentinel

	content := res.Response
	if !view.ContinueConversation {
		// Con la conversacion cerrada el backend sustituye la respuesta por
		// el resumen de persona.
		content = view.Persona
	} else if terminated && view.Persona != "" {
		content = view.Persona
	}

	next.Messages = append(next.Messages, domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   content,
		CreatedAt: a.now().UTC(),
	})
	next.CurrentPriority = view.CurrentPriority
	next.CurrentIteration = view.CurrentIteration
	next.StateBlob = append(json.RawMessage(nil), res.UpdatedState...)
	if terminated {
		next.Terminated = true
	}
	return next
}

// AppendFailure deja historial y evaluaciones intactos y agrega un unico
// mensaje sintetico de asistente describiendo la falla.
func (a *Aggregator) AppendFailure(prev domain.ConversationState, cause error) domain.ConversationState {
	next := prev.Clone()
	next.Messages = append(next.Messages, domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   "No se pudo obtener respuesta del backend: " + cause.Error(),
		CreatedAt: a.now().UTC(),
	})
	return next
}

func stringAt(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}

func floatAt(values []float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	v := values[i]
	return &v
}
