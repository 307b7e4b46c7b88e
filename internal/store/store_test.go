package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.Nil(t, MapError(nil))
	assert.ErrorIs(t, MapError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, MapError(&pgconn.PgError{Code: "23505"}), ErrUniqueViolation)

	err := MapError(&pgconn.PgError{Code: "42P01"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, MapError(errors.New("boom")), ErrPersistence)

	tagged := MapError(pgx.ErrNoRows)
	assert.Equal(t, tagged, MapError(tagged))
}

func TestCheckID(t *testing.T) {
	assert.NoError(t, checkID("project", "8f14e45f-ceea-467f-a0e6-3d1b2c3a4b5c"))
	assert.ErrorIs(t, checkID("project", "42"), ErrNotFound)
	assert.ErrorIs(t, checkID("query", ""), ErrNotFound)
}
