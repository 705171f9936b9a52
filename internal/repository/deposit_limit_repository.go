package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"goldtrade/internal/domain"
)

// DepositLimitRepositoryImpl implements the DepositLimitRepository interface
type DepositLimitRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewDepositLimitRepository creates a new DepositLimitRepository
func NewDepositLimitRepository(db *pgxpool.Pool) domain.DepositLimitRepository {
	return &DepositLimitRepositoryImpl{db: db}
}

// Create stores a new limit tier
func (r *DepositLimitRepositoryImpl) Create(ctx context.Context, limit *domain.DepositLimit) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO deposit_limits (id, name, daily_limit, monthly_limit, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, limit.ID, limit.Name, limit.DailyLimit, limit.MonthlyLimit, limit.CreatedAt)
	if err != nil {
		return mapErr(err, "failed to create deposit limit")
	}
	return nil
}

// GetByID retrieves a tier by ID
func (r *DepositLimitRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.DepositLimit, error) {
	limit := &domain.DepositLimit{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, daily_limit, monthly_limit, created_at
		FROM deposit_limits
		WHERE id = $1
	`, id).Scan(&limit.ID, &limit.Name, &limit.DailyLimit, &limit.MonthlyLimit, &limit.CreatedAt)
	if err != nil {
		return nil, mapErr(err, "failed to get deposit limit")
	}
	return limit, nil
}

// GetAll retrieves every tier ordered by name
func (r *DepositLimitRepositoryImpl) GetAll(ctx context.Context) ([]*domain.DepositLimit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, daily_limit, monthly_limit, created_at
		FROM deposit_limits
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposit limits: %w", err)
	}
	defer rows.Close()

	var limits []*domain.DepositLimit
	for rows.Next() {
		l := &domain.DepositLimit{}
		if err := rows.Scan(&l.ID, &l.Name, &l.DailyLimit, &l.MonthlyLimit, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deposit limit: %w", err)
		}
		limits = append(limits, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit limits: %w", err)
	}

	return limits, nil
}
