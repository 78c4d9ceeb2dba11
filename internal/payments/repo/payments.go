package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"juristBack/internal/models"
	"juristBack/internal/payments/fsm"
)

var (
	// ErrNotFound is returned when no payment matches the lookup.
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicateReference is returned when the reference is already taken.
	ErrDuplicateReference = errors.New("payment reference already exists")
	// ErrLivePaymentExists is returned when the payable already has a non-terminal payment.
	ErrLivePaymentExists = errors.New("live payment already exists for payable")
)

const paymentColumns = `id, payable_type, payable_id, reference, amount, currency, provider, status, channel,
session_id, response_code, response_message, customer_email, customer_first_name, customer_last_name,
customer_phone, expires_at, meta_json, created_at, updated_at, completed_at`

// PaymentsRepo stores payments.
type PaymentsRepo struct {
	db      *sql.DB
	dialect Dialect

	once sync.Once
	err  error
}

// NewPaymentsRepo creates repo.
func NewPaymentsRepo(db *sql.DB, d Dialect) *PaymentsRepo {
	return &PaymentsRepo{db: db, dialect: d}
}

// Dialect returns the SQL dialect the repo was built with.
func (r *PaymentsRepo) Dialect() Dialect { return r.dialect }

// EnsureSchema creates the payments table and its indexes once per process.
func (r *PaymentsRepo) EnsureSchema(ctx context.Context) error {
	r.once.Do(func() {
		for _, stmt := range r.dialect.schema() {
			if _, err := r.db.ExecContext(ctx, stmt); err != nil {
				r.err = fmt.Errorf("ensure payments schema: %w", err)
				return
			}
		}
	})
	return r.err
}

func (r *PaymentsRepo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.Bind(query), args...)
}

func (r *PaymentsRepo) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.Bind(query), args...)
}

// Create inserts a payment. Unique violations map to ErrDuplicateReference or ErrLivePaymentExists.
func (r *PaymentsRepo) Create(ctx context.Context, p *models.Payment) error {
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}
	meta, err := encodeMeta(p.Meta)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, `
INSERT INTO payments (id, payable_type, payable_id, reference, amount, currency, provider, status, channel,
    session_id, response_code, response_message, customer_email, customer_first_name, customer_last_name,
    customer_phone, expires_at, meta_json, live_key, created_at, updated_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PayableType, p.PayableID, p.Reference, p.Amount, p.Currency, p.Provider, string(p.Status), p.Channel,
		nullString(p.SessionID), p.ResponseCode, nullString(p.ResponseMessage),
		p.Customer.Email, p.Customer.FirstName, p.Customer.LastName, p.Customer.Phone,
		nullTime(p.ExpiresAt), meta, liveKey(p), p.CreatedAt.UTC(), p.UpdatedAt.UTC(), nullTime(p.CompletedAt),
	)
	switch UniqueConflict(err) {
	case ConflictNone:
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return nil
	case ConflictReference:
		return ErrDuplicateReference
	case ConflictLiveKey:
		return ErrLivePaymentExists
	default:
		return fmt.Errorf("insert payment: %w", err)
	}
}

// GetByID returns the payment with id.
func (r *PaymentsRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByReference returns the payment with reference.
func (r *PaymentsRepo) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	return r.getOne(ctx, `WHERE reference = ?`, reference)
}

// GetBySessionID returns the most recent payment bound to a gateway session.
func (r *PaymentsRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, `WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
}

// FindLive returns the non-terminal payment of a payable for provider.
func (r *PaymentsRepo) FindLive(ctx context.Context, payableType string, payableID int64, provider string) (*models.Payment, error) {
	return r.getOne(ctx, `WHERE live_key = ?`, models.LiveKey(payableType, payableID, provider))
}

func (r *PaymentsRepo) getOne(ctx context.Context, where string, args ...any) (*models.Payment, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	row := r.queryRow(ctx, `SELECT `+paymentColumns+` FROM payments `+where+` LIMIT 1`, args...)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByPayable returns every payment of a payable, newest first.
func (r *PaymentsRepo) ListByPayable(ctx context.Context, payableType string, payableID int64) ([]models.Payment, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.dialect.Bind(`SELECT `+paymentColumns+` FROM payments
WHERE payable_type = ? AND payable_id = ? ORDER BY created_at DESC, id`), payableType, payableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CountReferences implements reference.Counter: it counts base itself and
// base-<suffix>, never references that merely start with the same digits.
func (r *PaymentsRepo) CountReferences(ctx context.Context, base string) (int, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM payments WHERE reference = ? OR reference LIKE ? ESCAPE '!'`,
		base, suffixPattern(base)).Scan(&n)
	return n, err
}

// MarkInitiated stores the session of a PENDING payment. It reports false when
// the payment already left PENDING or already has a session.
func (r *PaymentsRepo) MarkInitiated(ctx context.Context, p *models.Payment) (bool, error) {
	res, err := r.exec(ctx, `
UPDATE payments SET status = ?, session_id = ?, updated_at = ?
WHERE id = ? AND status = ? AND session_id IS NULL`,
		string(fsm.StatusInitiated), p.SessionID, p.UpdatedAt.UTC(), p.ID, string(fsm.StatusPending))
	if err != nil {
		return false, fmt.Errorf("mark initiated: %w", err)
	}
	return affectedOne(res)
}

// Transition persists p's current status if the stored status still equals from.
// Terminal statuses release the live slot of the payable.
func (r *PaymentsRepo) Transition(ctx context.Context, p *models.Payment, from fsm.Status) (bool, error) {
	res, err := r.exec(ctx, `
UPDATE payments SET status = ?, response_code = ?, response_message = ?, updated_at = ?, completed_at = ?, live_key = ?
WHERE id = ? AND status = ?`,
		string(p.Status), p.ResponseCode, nullString(p.ResponseMessage), p.UpdatedAt.UTC(), nullTime(p.CompletedAt), liveKey(p),
		p.ID, string(from))
	if err != nil {
		return false, fmt.Errorf("transition %s -> %s: %w", from, p.Status, err)
	}
	return affectedOne(res)
}

// RecordResponse stores the last gateway answer without changing status.
// Terminal payments are left untouched.
func (r *PaymentsRepo) RecordResponse(ctx context.Context, id, code, message string, now time.Time) (bool, error) {
	terminals := fsm.Terminals()
	args := []any{code, nullString(message), now.UTC(), id}
	marks := make([]string, 0, len(terminals))
	for _, s := range terminals {
		marks = append(marks, "?")
		args = append(args, string(s))
	}
	res, err := r.exec(ctx, `UPDATE payments SET response_code = ?, response_message = ?, updated_at = ?
WHERE id = ? AND status NOT IN (`+strings.Join(marks, ", ")+`)`, args...)
	if err != nil {
		return false, fmt.Errorf("record response: %w", err)
	}
	return affectedOne(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(s rowScanner) (*models.Payment, error) {
	var (
		p           models.Payment
		status      string
		sessionID   sql.NullString
		respMessage sql.NullString
		expiresAt   sql.NullTime
		meta        sql.NullString
		completedAt sql.NullTime
	)
	err := s.Scan(&p.ID, &p.PayableType, &p.PayableID, &p.Reference, &p.Amount, &p.Currency, &p.Provider, &status, &p.Channel,
		&sessionID, &p.ResponseCode, &respMessage, &p.Customer.Email, &p.Customer.FirstName, &p.Customer.LastName,
		&p.Customer.Phone, &expiresAt, &meta, &p.CreatedAt, &p.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	p.Status = fsm.Status(status)
	p.SessionID = sessionID.String
	p.ResponseMessage = respMessage.String
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		p.ExpiresAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		p.CompletedAt = &t
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.Meta = models.Meta{}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &p.Meta); err != nil {
			return nil, fmt.Errorf("decode meta of %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func liveKey(p *models.Payment) any {
	if p.IsTerminal() {
		return nil
	}
	return models.LiveKey(p.PayableType, p.PayableID, p.Provider)
}

func encodeMeta(m models.Meta) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func suffixPattern(base string) string {
	return likeEscaper.Replace(base) + "-%"
}
