package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mikopo/backoffice/internal/domain"
)

type memberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (id, name, phone, group_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		member.ID,
		member.Name,
		member.Phone,
		member.GroupID,
		member.CreatedAt,
		member.UpdatedAt,
	)

	return err
}

func (r *memberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `
		SELECT id, name, phone, group_id, created_at, updated_at
		FROM members
		WHERE id = $1
	`

	var member domain.Member
	err := r.db.GetContext(ctx, &member, query, id)
	if err != nil {
		return nil, err
	}

	return &member, nil
}
