package payable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"juristBack/internal/models"
	"juristBack/internal/payments/repo"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// TableConfig describes a payable stored as a row of an existing table.
type TableConfig struct {
	Type         string `yaml:"type"`
	Table        string `yaml:"table"`
	IDColumn     string `yaml:"id_column"`
	AmountColumn string `yaml:"amount_column"`
	LabelColumn  string `yaml:"label_column"`
	StatusColumn string `yaml:"status_column"`

	PaidValue    string `yaml:"paid_value"`
	FailedValue  string `yaml:"failed_value"`
	PendingValue string `yaml:"pending_value"`
}

func (c *TableConfig) defaults() {
	if c.IDColumn == "" {
		c.IDColumn = "id"
	}
	if c.PaidValue == "" {
		c.PaidValue = "paid"
	}
	if c.FailedValue == "" {
		c.FailedValue = "payment_failed"
	}
}

// Validate checks the identifiers before they are spliced into SQL.
func (c TableConfig) Validate() error {
	if Normalize(c.Type) == "" {
		return errors.New("payable: type is required")
	}
	c.defaults()
	idents := map[string]string{
		"table":         c.Table,
		"id_column":     c.IDColumn,
		"amount_column": c.AmountColumn,
	}
	if c.LabelColumn != "" {
		idents["label_column"] = c.LabelColumn
	}
	if c.StatusColumn != "" {
		idents["status_column"] = c.StatusColumn
	}
	for name, v := range idents {
		if !identRe.MatchString(v) {
			return fmt.Errorf("payable %s: invalid %s %q", c.Type, name, v)
		}
	}
	return nil
}

// TableResolver loads payables from a SQL table.
type TableResolver struct {
	db      *sql.DB
	dialect repo.Dialect
	cfg     TableConfig
}

// NewTableResolver validates cfg and builds a resolver.
func NewTableResolver(db *sql.DB, d repo.Dialect, cfg TableConfig) (*TableResolver, error) {
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TableResolver{db: db, dialect: d, cfg: cfg}, nil
}

// Type returns the tag the resolver serves.
func (t *TableResolver) Type() string { return Normalize(t.cfg.Type) }

func (t *TableResolver) Resolve(ctx context.Context, id int64) (Payable, error) {
	label, status := "''", "''"
	if t.cfg.LabelColumn != "" {
		label = t.cfg.LabelColumn
	}
	if t.cfg.StatusColumn != "" {
		status = t.cfg.StatusColumn
	}
	q := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = ?`, t.cfg.AmountColumn, label, status, t.cfg.Table, t.cfg.IDColumn)

	var (
		amount int64
		text   sql.NullString
		state  sql.NullString
	)
	err := t.db.QueryRowContext(ctx, t.dialect.Bind(q), id).Scan(&amount, &text, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, t.cfg.Type, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", t.cfg.Type, id, err)
	}
	if !text.Valid || text.String == "" {
		text.String = fmt.Sprintf("%s #%d", t.cfg.Type, id)
	}
	// a settled row owes nothing
	if t.cfg.StatusColumn != "" && state.String == t.cfg.PaidValue {
		amount = 0
	}
	return &tableRow{resolver: t, id: id, amount: amount, label: text.String}, nil
}

// setStatus never overwrites a row already marked paid.
func (t *TableResolver) setStatus(ctx context.Context, id int64, value string) error {
	if t.cfg.StatusColumn == "" || value == "" {
		return nil
	}
	q := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ? AND (%s IS NULL OR %s <> ?)`,
		t.cfg.Table, t.cfg.StatusColumn, t.cfg.IDColumn, t.cfg.StatusColumn, t.cfg.StatusColumn)
	if _, err := t.db.ExecContext(ctx, t.dialect.Bind(q), value, id, t.cfg.PaidValue); err != nil {
		return fmt.Errorf("update %s %d status: %w", t.cfg.Type, id, err)
	}
	return nil
}

type tableRow struct {
	resolver *TableResolver
	id       int64
	amount   int64
	label    string
}

func (r *tableRow) AmountDue() int64     { return r.amount }
func (r *tableRow) DisplayLabel() string { return r.label }

func (r *tableRow) OnPaymentSucceeded(ctx context.Context, _ models.Payment) error {
	return r.resolver.setStatus(ctx, r.id, r.resolver.cfg.PaidValue)
}

func (r *tableRow) OnPaymentFailed(ctx context.Context, _ models.Payment) error {
	return r.resolver.setStatus(ctx, r.id, r.resolver.cfg.FailedValue)
}

func (r *tableRow) OnPaymentPending(ctx context.Context, _ models.Payment) error {
	return r.resolver.setStatus(ctx, r.id, r.resolver.cfg.PendingValue)
}
