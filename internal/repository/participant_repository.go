package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// ParticipantRepository handles participant and teacher data access.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

// GetByEmail retrieves a participant by email.
func (r *ParticipantRepository) GetByEmail(ctx context.Context, email string) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM participants WHERE email = $1`, email,
	).Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a participant by id.
func (r *ParticipantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM participants WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new participant.
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO participants (name, email) VALUES ($1, $2)
		 RETURNING id, created_at`,
		p.Name, p.Email,
	).Scan(&p.ID, &p.CreatedAt)
}

// GetTeacherByEmail retrieves a teacher account by email.
func (r *ParticipantRepository) GetTeacherByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	t := &model.Teacher{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, passcode_hash, created_at FROM teachers WHERE email = $1`, email,
	).Scan(&t.ID, &t.Name, &t.Email, &t.PasscodeHash, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTeacher inserts a new teacher account.
func (r *ParticipantRepository) CreateTeacher(ctx context.Context, t *model.Teacher) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO teachers (name, email, passcode_hash) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		t.Name, t.Email, t.PasscodeHash,
	).Scan(&t.ID, &t.CreatedAt)
}
