package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a transaction record.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO transactions (id, customer_id, type, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		txn.ID,
		txn.CustomerID,
		string(txn.Type),
		decimalToNumeric(txn.Amount),
		txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

// ListByCustomer returns a customer's transactions, newest first.
func (r *TransactionRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, customer_id, type, amount, created_at
		FROM transactions
		WHERE customer_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*domain.Transaction, 0)
	for rows.Next() {
		var (
			t       domain.Transaction
			txnType string
			amount  pgtype.Numeric
		)
		if err := rows.Scan(&t.ID, &t.CustomerID, &txnType, &amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(txnType)
		t.Amount = numericToDecimal(amount)
		txns = append(txns, &t)
	}

	return txns, rows.Err()
}

// TotalsByCustomer sums a customer's transactions per type inside tx.
func (r *TransactionRepository) TotalsByCustomer(ctx context.Context, tx usecase.Transaction, customerID string) (usecase.TransactionTotals, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return usecase.TransactionTotals{}, err
	}

	var deposits, disbursed, repaid pgtype.Numeric

	err = q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = $2), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = $3), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = $4), 0)
		FROM transactions
		WHERE customer_id = $1`,
		customerID,
		string(domain.TransactionTypeMicroDeposit),
		string(domain.TransactionTypeLoanDisburse),
		string(domain.TransactionTypeLoanRepayment),
	).Scan(&deposits, &disbursed, &repaid)
	if err != nil {
		return usecase.TransactionTotals{}, err
	}

	return usecase.TransactionTotals{
		MicroDeposits: numericToDecimal(deposits),
		Disbursed:     numericToDecimal(disbursed),
		Repaid:        numericToDecimal(repaid),
	}, nil
}
