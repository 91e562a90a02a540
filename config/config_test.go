package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SITE_URL", "https://foodgram.example/")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://foodgram.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "https://foodgram.example", cfg.SiteURL)
	assert.Equal(t, []string{"http://localhost:3000", "https://foodgram.example"}, cfg.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 5, cfg.RateLimit.AuthBurst)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_EXPIRATION", "tomorrow")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: DriverPostgres, Host: "db", Port: "5432", User: "u", Password: "p", Name: "foodgram", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=foodgram sslmode=disable", pg.DSN())

	lite := DatabaseConfig{Driver: DriverSQLite, SQLitePath: "foodgram.db"}
	assert.Equal(t, "foodgram.db", lite.DSN())
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "foodgram.db?_foreign_keys=on", SQLiteDSN("foodgram.db"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=on", SQLiteDSN("file:x?mode=memory"))
	assert.Equal(t, "a.db?_foreign_keys=off", SQLiteDSN("a.db?_foreign_keys=off"))
}
