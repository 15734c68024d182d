package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg, err := mysql.ParseDSN(dsn("app", "s3cret", "db.internal", "3306", "label"))
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "s3cret", cfg.Passwd)
	assert.Equal(t, "db.internal:3306", cfg.Addr)
	assert.Equal(t, "label", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "UTC", cfg.Loc.String())
	// Matched rows, not changed rows: idempotent UPDATEs (re-submitting a
	// demo status, cancelling an already-cancelled subscription) must not
	// read as not-found.
	assert.True(t, cfg.ClientFoundRows)
}

func TestDSNWithoutPassword(t *testing.T) {
	cfg, err := mysql.ParseDSN(dsn("app", "", "localhost", "3306", "label"))
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Empty(t, cfg.Passwd)
}
