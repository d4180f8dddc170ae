package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

// CreateInstallmentPlan inserts a new plan and assigns its ID.
func (s *SQLiteStorage) CreateInstallmentPlan(ctx context.Context, plan *model.InstallmentPlan) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePlan(plan); err != nil {
		return err
	}
	return s.createInstallmentPlanTx(ctx, s.db, plan)
}

func (s *SQLiteStorage) createInstallmentPlanTx(ctx context.Context, q queryable, plan *model.InstallmentPlan) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO installment_plans (description, total_amount, total_installments, interest_rate)
		VALUES (?, ?, ?, ?)`,
		plan.Description,
		plan.TotalAmount.String(),
		plan.TotalInstallments,
		plan.InterestRate.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert installment plan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get plan id: %w", err)
	}
	plan.ID = id
	return nil
}

// GetInstallmentPlan returns a plan by ID, or nil if it does not exist.
func (s *SQLiteStorage) GetInstallmentPlan(ctx context.Context, id int64) (*model.InstallmentPlan, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getInstallmentPlanTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getInstallmentPlanTx(ctx context.Context, q queryable, id int64) (*model.InstallmentPlan, error) {
	var plan model.InstallmentPlan
	var totalAmount, interestRate string

	err := q.QueryRowContext(ctx, `
		SELECT id, description, total_amount, total_installments, interest_rate, created_at
		FROM installment_plans
		WHERE id = ?`, id).Scan(
		&plan.ID,
		&plan.Description,
		&totalAmount,
		&plan.TotalInstallments,
		&interestRate,
		&plan.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query installment plan: %w", err)
	}

	if plan.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("invalid total amount %q: %w", totalAmount, err)
	}
	if plan.InterestRate, err = decimal.NewFromString(interestRate); err != nil {
		return nil, fmt.Errorf("invalid interest rate %q: %w", interestRate, err)
	}
	return &plan, nil
}
