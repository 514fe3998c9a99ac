package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// MicroDepositRepository implements usecase.MicroDepositRepository.
type MicroDepositRepository struct {
	db DBTX
}

// NewMicroDepositRepository creates a new MicroDepositRepository.
func NewMicroDepositRepository(db DBTX) *MicroDepositRepository {
	return &MicroDepositRepository{db: db}
}

// Create inserts a deposit and fills in its database-assigned sequence.
func (r *MicroDepositRepository) Create(ctx context.Context, tx usecase.Transaction, deposit *domain.MicroDeposit) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO micro_deposits (id, customer_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq`,
		deposit.ID,
		deposit.CustomerID,
		decimalToNumeric(deposit.Amount),
		string(deposit.Status),
		deposit.CreatedAt,
		deposit.UpdatedAt,
	).Scan(&deposit.Sequence)
	if err != nil {
		return fmt.Errorf("insert micro deposit: %w", err)
	}

	return nil
}

// GetLatestByCustomerForUpdate locks the customer's most recent deposit.
func (r *MicroDepositRepository) GetLatestByCustomerForUpdate(ctx context.Context, tx usecase.Transaction, customerID string) (*domain.MicroDeposit, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	var (
		d      domain.MicroDeposit
		amount pgtype.Numeric
		status string
	)

	err = q.QueryRow(ctx, `
		SELECT id, customer_id, amount, status, seq, created_at, updated_at
		FROM micro_deposits
		WHERE customer_id = $1
		ORDER BY seq DESC
		LIMIT 1
		FOR UPDATE`, customerID,
	).Scan(&d.ID, &d.CustomerID, &amount, &status, &d.Sequence, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoDepositFound
		}
		return nil, err
	}

	d.Amount = numericToDecimal(amount)
	if d.Status, err = domain.ParseDepositStatus(status); err != nil {
		return nil, err
	}

	return &d, nil
}

// UpdateStatus changes a deposit's status.
func (r *MicroDepositRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.DepositStatus, updatedAt time.Time) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `UPDATE micro_deposits SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update micro deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoDepositFound
	}

	return nil
}
