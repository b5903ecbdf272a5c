package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/capitalx/capitalx/internal/database"
	"github.com/capitalx/capitalx/internal/domain"
	"github.com/rs/zerolog"
)

const customerColumns = `id, customer_code, customer_name, created_at`

// CustomerRepository handles customer database operations
type CustomerRepository struct {
	db  database.Queryer
	log zerolog.Logger
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db database.Queryer, log zerolog.Logger) *CustomerRepository {
	return &CustomerRepository{
		db:  db,
		log: log.With().Str("repo", "customer").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *CustomerRepository) WithTx(tx *sql.Tx) *CustomerRepository {
	return &CustomerRepository{db: tx, log: r.log}
}

// GetByCode returns the customer with the given code, or nil if none exists
func (r *CustomerRepository) GetByCode(ctx context.Context, code string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE customer_code = ?`, code)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer %s: %w", code, err)
	}
	return c, nil
}

// GetByID returns the customer with the given id, or nil if none exists
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer %d: %w", id, err)
	}
	return c, nil
}

// List returns all customers ordered by code
func (r *CustomerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY customer_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}
	return customers, nil
}

// Create inserts a customer and sets its ID and CreatedAt
func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (customer_code, customer_name, created_at) VALUES (?, ?, ?)`,
		c.Code, c.Name, c.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert customer %s: %w", c.Code, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get customer id: %w", err)
	}
	c.ID = id
	c.CreatedAt = unixTime(c.CreatedAt.Unix())

	r.log.Debug().Str("customer_code", c.Code).Int64("id", id).Msg("Customer created")
	return nil
}

// UpdateName overwrites the display name of a customer
func (r *CustomerRepository) UpdateName(ctx context.Context, id int64, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE customers SET customer_name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update customer %d name: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(s rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	var createdAt int64
	if err := s.Scan(&c.ID, &c.Code, &c.Name, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = unixTime(createdAt)
	return &c, nil
}
