package payable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"juristBack/internal/models"
	"juristBack/internal/payments/repo"
)

// CustomerTableConfig maps payer contact fields to columns of a users table.
type CustomerTableConfig struct {
	Table           string `yaml:"table"`
	IDColumn        string `yaml:"id_column"`
	EmailColumn     string `yaml:"email_column"`
	FirstNameColumn string `yaml:"first_name_column"`
	LastNameColumn  string `yaml:"last_name_column"`
	PhoneColumn     string `yaml:"phone_column"`
}

// CustomerTable reads the payer's default contact details.
type CustomerTable struct {
	db    *sql.DB
	query string
}

// NewCustomerTable validates cfg and builds the lookup.
func NewCustomerTable(db *sql.DB, d repo.Dialect, cfg CustomerTableConfig) (*CustomerTable, error) {
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	for name, v := range map[string]string{
		"table":             cfg.Table,
		"id_column":         cfg.IDColumn,
		"email_column":      cfg.EmailColumn,
		"first_name_column": cfg.FirstNameColumn,
		"last_name_column":  cfg.LastNameColumn,
		"phone_column":      cfg.PhoneColumn,
	} {
		if !identRe.MatchString(v) {
			return nil, fmt.Errorf("customers: invalid %s %q", name, v)
		}
	}
	q := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s WHERE %s = ?`,
		cfg.EmailColumn, cfg.FirstNameColumn, cfg.LastNameColumn, cfg.PhoneColumn, cfg.Table, cfg.IDColumn)
	return &CustomerTable{db: db, query: d.Bind(q)}, nil
}

// Customer returns the stored contact details of user id.
func (c *CustomerTable) Customer(ctx context.Context, userID int64) (models.Customer, error) {
	var email, first, last, phone sql.NullString
	err := c.db.QueryRowContext(ctx, c.query, userID).Scan(&email, &first, &last, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Customer{}, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("load customer %d: %w", userID, err)
	}
	return models.Customer{Email: email.String, FirstName: first.String, LastName: last.String, Phone: phone.String}, nil
}
