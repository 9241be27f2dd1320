package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughDomainErrors(t *testing.T) {
	err := NewAuthorization("assignment requires superadmin")

	de := ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, CodeUnauthorized, de.Code)
	assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
}

func TestToDomainError_MapsNoRowsToNotFound(t *testing.T) {
	de := ToDomainError(pgx.ErrNoRows)
	require.NotNil(t, de)
	assert.Equal(t, CodeNotFound, de.Code)
}

func TestToDomainError_WrapsForeignErrors(t *testing.T) {
	cause := errors.New("connection refused")
	de := ToDomainError(cause)
	require.NotNil(t, de)
	assert.Equal(t, CodeInternal, de.Code)
	assert.ErrorIs(t, de, cause)
}

func TestHasCode(t *testing.T) {
	err := NewValidation("resolution message required", nil)
	assert.True(t, HasCode(err, CodeValidation))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(nil, CodeValidation))
}

func TestNewPersistenceUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	err := NewPersistence("partial update failed", cause)
	assert.True(t, HasCode(err, CodePersistence))
	assert.ErrorIs(t, err, cause)
}
