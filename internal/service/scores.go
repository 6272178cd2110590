package service

import "fintrait-chat/internal/domain"

// AggregateScores calcula el promedio de score y confianza por rasgo sobre
// las evaluaciones que traen score. Rasgos nunca puntuados se omiten por
// completo, no se reportan en cero.
//
// La confianza ausente cuenta como 0 dentro del promedio, lo que sesga la
// media hacia abajo; es comportamiento heredado y esta cubierto por test.
func AggregateScores(assessments []domain.TraitAssessment) []domain.TraitSummary {
	var summaries []domain.TraitSummary

	for _, trait := range domain.TraitIDs {
		var scoreSum, confSum float64
		samples := 0

		for _, a := range assessments {
			if a.Trait != trait || a.Score == nil {
				continue
			}
			samples++
			scoreSum += *a.Score
			if a.Confidence != nil {
				confSum += *a.Confidence
			}
		}

		if samples == 0 {
			continue
		}
		summaries = append(summaries, domain.TraitSummary{
			Trait:      trait,
			Score:      scoreSum / float64(samples),
			Confidence: confSum / float64(samples),
			Samples:    samples,
		})
	}

	return summaries
}
