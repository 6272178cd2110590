package repository

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"fintrait-chat/internal/domain"
)

type AssessmentRepository interface {
	Create(ctx context.Context, sessionID string, assessment domain.TraitAssessment) error
	ListBySessionID(ctx context.Context, sessionID string) ([]domain.TraitAssessment, error)
}

type PgAssessmentRepository struct {
	pool *pgxpool.Pool
}

func NewPgAssessmentRepository(pool *pgxpool.Pool) *PgAssessmentRepository {
	return &PgAssessmentRepository{pool: pool}
}

func (r *PgAssessmentRepository) Create(ctx context.Context, sessionID string, assessment domain.TraitAssessment) error {
	const query = `
		INSERT INTO trait_assessments (id, session_id, trait, score, confidence, sentence, rationale, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	var score interface{}
	if assessment.Score != nil {
		score = *assessment.Score
	}
	var confidence interface{}
	if assessment.Confidence != nil {
		confidence = *assessment.Confidence
	}

	_, err := r.pool.Exec(ctx, query,
		assessment.ID,
		sessionID,
		assessment.Trait,
		score,
		confidence,
		assessment.Sentence,
		assessment.Rationale,
		assessment.Timestamp,
	)
	return err
}

func (r *PgAssessmentRepository) ListBySessionID(ctx context.Context, sessionID string) ([]domain.TraitAssessment, error) {
	const query = `
		SELECT id, trait, score, confidence, sentence, rationale, created_at
		FROM trait_assessments
		WHERE session_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []domain.TraitAssessment
	for rows.Next() {
		var a domain.TraitAssessment
		var score, confidence sql.NullFloat64

		if err := rows.Scan(
			&a.ID,
			&a.Trait,
			&score,
			&confidence,
			&a.Sentence,
			&a.Rationale,
			&a.Timestamp,
		); err != nil {
			return nil, err
		}
		if score.Valid {
			val := score.Float64
			a.Score = &val
		}
		if confidence.Valid {
			val := confidence.Float64
			a.Confidence = &val
		}
		assessments = append(assessments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assessments, nil
}
