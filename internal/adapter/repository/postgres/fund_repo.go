package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

const fundColumns = `id, fund_for_loan, version, created_at, updated_at`

// FundRepository implements usecase.FundRepository over the single-row
// bank_fund table.
type FundRepository struct {
	db DBTX
}

// NewFundRepository creates a new FundRepository.
func NewFundRepository(db DBTX) *FundRepository {
	return &FundRepository{db: db}
}

// Create inserts the fund row. A second call returns domain.ErrFundExists.
func (r *FundRepository) Create(ctx context.Context, tx usecase.Transaction, fund *domain.BankFund) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		INSERT INTO bank_fund (`+fundColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		fund.ID,
		decimalToNumeric(fund.FundForLoan),
		fund.Version,
		fund.CreatedAt,
		fund.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFundExists
	}

	return nil
}

// Get reads the fund without locking it.
func (r *FundRepository) Get(ctx context.Context) (*domain.BankFund, error) {
	row := r.db.QueryRow(ctx, `SELECT `+fundColumns+` FROM bank_fund WHERE id = $1`, domain.PrimaryFundID)
	return scanFund(row)
}

// GetForUpdate reads and row-locks the fund.
func (r *FundRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.BankFund, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, `SELECT `+fundColumns+` FROM bank_fund WHERE id = $1 FOR UPDATE`, domain.PrimaryFundID)
	return scanFund(row)
}

// Update writes the balance guarded by the version column.
func (r *FundRepository) Update(ctx context.Context, tx usecase.Transaction, fund *domain.BankFund) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE bank_fund
		SET fund_for_loan = $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $4`,
		fund.ID,
		decimalToNumeric(fund.FundForLoan),
		fund.UpdatedAt,
		fund.Version,
	)
	if err != nil {
		return fmt.Errorf("update fund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	fund.Version++

	return nil
}

func scanFund(row rowScanner) (*domain.BankFund, error) {
	var (
		f       domain.BankFund
		balance pgtype.Numeric
	)

	if err := row.Scan(&f.ID, &balance, &f.Version, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFundMissing
		}
		return nil, err
	}

	f.FundForLoan = numericToDecimal(balance)

	return &f, nil
}
