package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
server:
  address: ":8080"
  allowed_origins: ["http://localhost:3000"]
database:
  driver: sqlite
  url: "file:test.db"
kafka:
  brokers: ["k1:9092"]
auth:
  jwt_secret: secret
payables:
  - type: request
    table: requests
    amount_column: price
customers:
  table: users
  email_column: email
  first_name_column: name
  last_name_column: surname
  phone_column: phone
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)
	require.Len(t, cfg.Payables, 1)
	require.Equal(t, "price", cfg.Payables[0].AmountColumn)
	require.NotNil(t, cfg.Customers)
	require.Equal(t, "surname", cfg.Customers.LastNameColumn)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db")
	t.Setenv("KAFKA_BROKERS", "a:1,b:2")
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, "postgres://db", cfg.Database.URL)
	require.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("server: ["))
	require.Error(t, err)

	_, err = Parse([]byte("database:\n  url: x\n"))
	require.Error(t, err)

	_, err = Parse([]byte("database:\n  url: x\nauth:\n  jwt_secret: s\npayables:\n  - type: request\n    table: \"bad table\"\n    amount_column: price\n"))
	require.Error(t, err)
}

func TestLoadConfigFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv("CONFIG_PATH", path)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Database.Driver)

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = LoadConfig()
	require.Error(t, err)
}
