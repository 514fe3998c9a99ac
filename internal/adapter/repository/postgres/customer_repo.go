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

const customerColumns = `id, account_number, amount, total_loan, loan_paid, loan_remaining, version, created_at, updated_at`

// CustomerRepository implements usecase.CustomerRepository.
type CustomerRepository struct {
	db DBTX
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create inserts a customer inside tx.
func (r *CustomerRepository) Create(ctx context.Context, tx usecase.Transaction, customer *domain.Customer) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO customers (`+customerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		customer.ID,
		customer.AccountNumber,
		decimalToNumeric(customer.Amount),
		decimalToNumeric(customer.TotalLoan),
		decimalToNumeric(customer.LoanPaid),
		decimalToNumeric(customer.LoanRemaining),
		customer.Version,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrCustomerExists
	}

	return err
}

// GetByAccountNumber reads a customer outside any transaction.
func (r *CustomerRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE account_number = $1`, accountNumber)
	return scanCustomer(row)
}

// GetByAccountNumberForUpdate reads and row-locks a customer.
func (r *CustomerRepository) GetByAccountNumberForUpdate(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Customer, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE account_number = $1 FOR UPDATE`, accountNumber)
	return scanCustomer(row)
}

// Update writes balances guarded by the version column.
func (r *CustomerRepository) Update(ctx context.Context, tx usecase.Transaction, customer *domain.Customer) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE customers
		SET amount = $2, total_loan = $3, loan_paid = $4, loan_remaining = $5,
		    version = version + 1, updated_at = $6
		WHERE id = $1 AND version = $7`,
		customer.ID,
		decimalToNumeric(customer.Amount),
		decimalToNumeric(customer.TotalLoan),
		decimalToNumeric(customer.LoanPaid),
		decimalToNumeric(customer.LoanRemaining),
		customer.UpdatedAt,
		customer.Version,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	customer.Version++

	return nil
}

// List returns customers in creation order.
func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]*domain.Customer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]*domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	return customers, rows.Err()
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var (
		c                              domain.Customer
		amount, total, paid, remaining pgtype.Numeric
		createdAt, updatedAt           time.Time
	)

	err := row.Scan(&c.ID, &c.AccountNumber, &amount, &total, &paid, &remaining, &c.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	c.Amount = numericToDecimal(amount)
	c.TotalLoan = numericToDecimal(total)
	c.LoanPaid = numericToDecimal(paid)
	c.LoanRemaining = numericToDecimal(remaining)
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt

	return &c, nil
}
