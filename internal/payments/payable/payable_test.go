package payable

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"juristBack/internal/models"
	"juristBack/internal/payments/repo"
)

func newRequestsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE requests (id INTEGER PRIMARY KEY, price INTEGER NOT NULL, title TEXT, status TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO requests (id, price, title, status) VALUES (1, 150000, 'Consultation', 'open'), (2, 0, NULL, 'open')`)
	require.NoError(t, err)
	return db
}

func newRequestsResolver(t *testing.T, db *sql.DB) *TableResolver {
	t.Helper()
	d, err := repo.DialectFor("sqlite")
	require.NoError(t, err)
	r, err := NewTableResolver(db, d, TableConfig{
		Type:         "Request",
		Table:        "requests",
		AmountColumn: "price",
		LabelColumn:  "title",
		StatusColumn: "status",
	})
	require.NoError(t, err)
	return r
}

func status(t *testing.T, db *sql.DB, id int64) string {
	t.Helper()
	var s string
	require.NoError(t, db.QueryRow(`SELECT status FROM requests WHERE id = ?`, id).Scan(&s))
	return s
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	r := ResolverFunc(func(ctx context.Context, id int64) (Payable, error) { return nil, ErrNotFound })
	require.NoError(t, reg.Register("Request", r))
	require.Error(t, reg.Register("request", r))
	require.NoError(t, reg.Register("subscription", r))

	require.True(t, reg.Has(" REQUEST "))
	require.False(t, reg.Has("purchase"))
	require.Equal(t, []string{"request", "subscription"}, reg.Types())

	_, err := reg.Resolve(context.Background(), "purchase", 1)
	require.ErrorIs(t, err, ErrUnknownType)
	_, err = reg.Resolve(context.Background(), "request", 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTableResolver(t *testing.T) {
	ctx := context.Background()
	db := newRequestsDB(t)
	r := newRequestsResolver(t, db)
	require.Equal(t, "request", r.Type())

	p, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(150000), p.AmountDue())
	require.Equal(t, "Consultation", p.DisplayLabel())

	empty, err := r.Resolve(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(0), empty.AmountDue())
	require.Equal(t, "Request #2", empty.DisplayLabel())

	_, err = r.Resolve(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTableResolverHooks(t *testing.T) {
	ctx := context.Background()
	db := newRequestsDB(t)
	r := newRequestsResolver(t, db)

	p, err := r.Resolve(ctx, 1)
	require.NoError(t, err)

	failing, ok := p.(FailureNotifiable)
	require.True(t, ok)
	require.NoError(t, failing.OnPaymentFailed(ctx, models.Payment{}))
	require.Equal(t, "payment_failed", status(t, db, 1))

	require.NoError(t, p.OnPaymentSucceeded(ctx, models.Payment{}))
	require.Equal(t, "paid", status(t, db, 1))

	// a late failure must not undo the settlement
	require.NoError(t, failing.OnPaymentFailed(ctx, models.Payment{}))
	require.Equal(t, "paid", status(t, db, 1))

	settled, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), settled.AmountDue())
}

func TestTableConfigValidate(t *testing.T) {
	d, _ := repo.DialectFor("sqlite")
	_, err := NewTableResolver(nil, d, TableConfig{Type: "request", Table: "requests; DROP TABLE x", AmountColumn: "price"})
	require.Error(t, err)
	_, err = NewTableResolver(nil, d, TableConfig{Type: "", Table: "requests", AmountColumn: "price"})
	require.Error(t, err)
	_, err = NewTableResolver(nil, d, TableConfig{Type: "request", Table: "requests", AmountColumn: "price"})
	require.NoError(t, err)
}

func TestCustomerTable(t *testing.T) {
	db := newRequestsDB(t)
	_, err := db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, name TEXT, surname TEXT, phone TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, email, name, surname, phone) VALUES (7, 'awa@example.com', 'Awa', 'Diop', NULL)`)
	require.NoError(t, err)

	d, _ := repo.DialectFor("sqlite")
	c, err := NewCustomerTable(db, d, CustomerTableConfig{
		Table: "users", EmailColumn: "email", FirstNameColumn: "name", LastNameColumn: "surname", PhoneColumn: "phone",
	})
	require.NoError(t, err)

	got, err := c.Customer(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, models.Customer{Email: "awa@example.com", FirstName: "Awa", LastName: "Diop"}, got)
	require.Equal(t, []string{"phone"}, got.Missing())

	_, err = c.Customer(context.Background(), 8)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = NewCustomerTable(db, d, CustomerTableConfig{Table: "users"})
	require.Error(t, err)
}
