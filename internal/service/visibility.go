package service

import "fintrait-chat/internal/domain"

// AssessmentsVisibleFor decide que evaluaciones se muestran debajo de un
// mensaje. Es una regla de ventana de display: solo mensajes de usuario
// dentro de las dos ultimas entradas del transcript reciben tarjetas, y solo
// con evaluaciones posteriores al mensaje que traigan algo mostrable.
func AssessmentsVisibleFor(msg domain.Message, messages []domain.Message, assessments []domain.TraitAssessment) []domain.TraitAssessment {
	if msg.Role != domain.RoleUser {
		return nil
	}
	if !withinLastTwo(msg, messages) {
		return nil
	}

	var visible []domain.TraitAssessment
	for _, a := range assessments {
		if !a.Timestamp.After(msg.CreatedAt) {
			continue
		}
		if !a.HasContent() {
			continue
		}
		visible = append(visible, a)
	}
	return visible
}

func withinLastTwo(msg domain.Message, messages []domain.Message) bool {
	start := len(messages) - 2
	if start < 0 {
		start = 0
	}
	for _, m := range messages[start:] {
		if m.ID == msg.ID {
			return true
		}
	}
	return false
}
