package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"no rows", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"wrapped no rows", fmt.Errorf("load: %w", pgx.ErrNoRows), CodeNotFound, http.StatusNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, CodeConflict, http.StatusConflict},
		{"other pg error", &pgconn.PgError{Code: "40001"}, CodeInternal, http.StatusInternalServerError},
		{"plain error", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
		{"domain error", NewStatusChangeForbidden("NEW", "CLOSED"), CodeStatusChangeForbidden, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			require.NotNil(t, de)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.status, de.HTTPStatus)
		})
	}
}

func TestMapErrorKeepsNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
}

func TestInternalErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := MapError(cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, CodeInternal))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NewNotFound("ticket", nil)))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.False(t, Is(nil, CodeNotFound))
}
