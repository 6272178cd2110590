package service

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"fintrait-chat/internal/backend"
	"fintrait-chat/internal/domain"
)

func encodeState(t *testing.T, fields map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal state fields: %v", err)
	}
	return raw
}

func fixedAggregator(at time.Time) *Aggregator {
	agg := NewAggregator()
	agg.now = func() time.Time { return at }
	return agg
}

func TestReconcileMaterializesSuffixAndIsIdempotent(t *testing.T) {
	agg := fixedAggregator(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	res := backend.ChatResult{
		Response: "cuentame mas sobre tus gastos",
		UpdatedState: encodeState(t, map[string]any{
			"continue_conversation": true,
			"awareness_score":       []float64{3, 4},
			"awareness_confidence":  []float64{7, 8},
			"awareness_sentences":   []string{"nota gastos", "revisa extractos"},
			"awareness_rationale":   []string{"menciono su presupuesto", "habla de revisar el banco"},
		}),
	}

	prev := agg.AppendUserMessage(domain.ConversationState{}, "hola")
	next := agg.Reconcile(prev, res)

	if len(next.Assessments) != 2 {
		t.Fatalf("expected 2 assessments, got %d", len(next.Assessments))
	}
	if len(next.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(next.Messages))
	}

	// Re-entregar exactamente la misma respuesta no debe duplicar nada.
	again := agg.Reconcile(next, res)
	if len(again.Assessments) != 2 {
		t.Fatalf("expected reconciliation to be idempotent, got %d assessments", len(again.Assessments))
	}
}

func TestReconcileAppendsExactlyTheNewSuffix(t *testing.T) {
	agg := fixedAggregator(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	first := backend.ChatResult{
		Response: "ok",
		UpdatedState: encodeState(t, map[string]any{
			"continue_conversation":  true,
			"risk_seeking_score":     []float64{2},
			"risk_seeking_sentences": []string{"evita riesgos"},
		}),
	}
	second := backend.ChatResult{
		Response: "ok",
		UpdatedState: encodeState(t, map[string]any{
			"continue_conversation":  true,
			"risk_seeking_score":     []float64{2, 3, 5},
			"risk_seeking_sentences": []string{"evita riesgos", "duda", "apuesta fuerte"},
		}),
	}

	state := agg.Reconcile(domain.ConversationState{}, first)
	if len(state.Assessments) != 1 {
		t.Fatalf("expected 1 assessment after first response, got %d", len(state.Assessments))
	}

	state = agg.Reconcile(state, second)
	if len(state.Assessments) != 3 {
		t.Fatalf("expected exactly N2-N1=2 new assessments (3 total), got %d", len(state.Assessments))
	}
}

func TestReconcileSkipsIndicesWithoutSentenceOrScore(t *testing.T) {
	agg := fixedAggregator(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	res := backend.ChatResult{
		Response: "ok",
		UpdatedState: encodeState(t, map[string]any{
			"continue_conversation":  true,
			"preparedness_sentences": []string{"", "tiene fondo de emergencia"},
			"preparedness_rationale": []string{"sin datos", "menciono ahorros"},
		}),
	}

	next := agg.Reconcile(domain.ConversationState{}, res)
	if len(next.Assessments) != 1 {
		t.Fatalf("expected only the index with content, got %d assessments", len(next.Assessments))
	}
	if next.Assessments[0].Sentence != "tiene fondo de emergencia" {
		t.Fatalf("unexpected sentence %q", next.Assessments[0].Sentence)
	}
}

func TestReconcileTerminateSentinelOverridesContinueFlag(t *testing.T) {
	agg := fixedAggregator(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	res := backend.ChatResult{
		Response: "terminate",
		UpdatedState: encodeState(t, map[string]any{
			"continue_conversation": true,
		}),
	}

	next := agg.Reconcile(domain.ConversationState{}, res)
	if !next.Terminated {
		t.Fatalf("expected terminated state despite continue_conversation=true")
	}
}

func TestReconcilePersonaReplacesAssistantContent(t *testing.T) {
	agg := fixedAggregator(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	res := backend.ChatResult{
		Response: "esta respuesta no debe mostrarse",
		UpdatedState: encodeState(t, map[string]any{
			"continue_conversation": false,
			"persona":               "Perfil: ahorrador cauteloso con foco en liquidez.",
		}),
	}

	next := agg.Reconcile(domain.ConversationState{}, res)
	if !next.Terminated {
		t.Fatalf("expected terminated state")
	}
	last := next.Messages[len(next.Messages)-1]
	if last.Content != "Perfil: ahorrador cauteloso con foco en liquidez." {
		t.Fatalf("expected persona text as assistant content, got %q", last.Content)
	}
}

func TestReconcileReplacesBlobPriorityAndIteration(t *testing.T) {
	agg := fixedAggregator(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	blob := encodeState(t, map[string]any{
		"continue_conversation": true,
		"current_priority":      "self_control",
		"current_iteration":     4,
		"campo_desconocido":     "se ignora pero se conserva",
	})
	res := backend.ChatResult{Response: "ok", UpdatedState: blob}

	prev := domain.ConversationState{
		CurrentPriority: "awareness",
		StateBlob:       json.RawMessage(`{"viejo":true}`),
	}
	next := agg.Reconcile(prev, res)

	if next.CurrentPriority != "self_control" {
		t.Fatalf("expected priority replaced, got %q", next.CurrentPriority)
	}
	if next.CurrentIteration == nil || *next.CurrentIteration != 4 {
		t.Fatalf("expected iteration 4, got %v", next.CurrentIteration)
	}
	if string(next.StateBlob) != string(blob) {
		t.Fatalf("expected blob replaced verbatim")
	}
}

func TestReconcileTimestampsStrictlyIncreasing(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := fixedAggregator(base)

	first := backend.ChatResult{
		Response: "ok",
		UpdatedState: encodeState(t, map[string]any{
			"continue_conversation":  true,
			"awareness_sentences":    []string{"a", "b"},
			"self_control_sentences": []string{"c"},
		}),
	}
	state := agg.Reconcile(domain.ConversationState{}, first)

	for i := 1; i < len(state.Assessments); i++ {
		if !state.Assessments[i].Timestamp.After(state.Assessments[i-1].Timestamp) {
			t.Fatalf("expected strictly increasing timestamps within one pass")
		}
	}

	// Un segundo pase con el mismo reloj congelado igual debe quedar despues
	// de todo lo anterior.
	second := backend.ChatResult{
		Response: "ok",
		UpdatedState: encodeState(t, map[string]any{
			"continue_conversation":  true,
			"awareness_sentences":    []string{"a", "b", "d"},
			"self_control_sentences": []string{"c"},
		}),
	}
	next := agg.Reconcile(state, second)
	last := state.LastAssessmentTime()
	added := next.Assessments[len(next.Assessments)-1]
	if !added.Timestamp.After(last) {
		t.Fatalf("expected new assessment later than all prior ones")
	}
}

func TestAppendFailureKeepsHistoryAndAddsOneErrorMessage(t *testing.T) {
	agg := fixedAggregator(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	prev := agg.AppendUserMessage(domain.ConversationState{
		Assessments: []domain.TraitAssessment{{ID: "a1", Trait: domain.TraitAwareness}},
		StateBlob:   json.RawMessage(`{"x":1}`),
	}, "hola")

	next := agg.AppendFailure(prev, errors.New("connection refused"))

	if len(next.Messages) != len(prev.Messages)+1 {
		t.Fatalf("expected exactly one new message, got %d -> %d", len(prev.Messages), len(next.Messages))
	}
	if len(next.Assessments) != 1 {
		t.Fatalf("expected assessments untouched, got %d", len(next.Assessments))
	}
	if string(next.StateBlob) != `{"x":1}` {
		t.Fatalf("expected state blob untouched")
	}
	last := next.Messages[len(next.Messages)-1]
	if last.Role != domain.RoleAssistant {
		t.Fatalf("expected assistant role, got %s", last.Role)
	}
	if !strings.Contains(last.Content, "connection refused") {
		t.Fatalf("expected failure description in message, got %q", last.Content)
	}
}
