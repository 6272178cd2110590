package service

import (
	"context"

	"fintrait-chat/internal/domain"
	"fintrait-chat/internal/repository"
)

// TranscriptRecorder persiste el transcript fuera del ciclo de la
// conversacion. Sus errores nunca rompen un turno: el controller solo los
// loguea.
type TranscriptRecorder interface {
	RecordMessage(ctx context.Context, sessionID string, msg domain.Message) error
	RecordAssessments(ctx context.Context, sessionID string, assessments []domain.TraitAssessment) error
}

type noopRecorder struct{}

// NewNoopRecorder devuelve un recorder que descarta todo; se usa cuando no
// hay DATABASE_URL configurada.
func NewNoopRecorder() TranscriptRecorder {
	return noopRecorder{}
}

func (noopRecorder) RecordMessage(context.Context, string, domain.Message) error { return nil }

func (noopRecorder) RecordAssessments(context.Context, string, []domain.TraitAssessment) error {
	return nil
}

type repoRecorder struct {
	messages    repository.MessageRepository
	assessments repository.AssessmentRepository
}

// NewRepoRecorder persiste mensajes y evaluaciones en Postgres.
func NewRepoRecorder(messages repository.MessageRepository, assessments repository.AssessmentRepository) TranscriptRecorder {
	return &repoRecorder{messages: messages, assessments: assessments}
}

func (r *repoRecorder) RecordMessage(ctx context.Context, sessionID string, msg domain.Message) error {
	return r.messages.Create(ctx, sessionID, msg)
}

func (r *repoRecorder) RecordAssessments(ctx context.Context, sessionID string, assessments []domain.TraitAssessment) error {
	for _, a := range assessments {
		if err := r.assessments.Create(ctx, sessionID, a); err != nil {
			return err
		}
	}
	return nil
}
