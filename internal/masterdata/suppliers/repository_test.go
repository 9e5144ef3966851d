package suppliers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/inventaris/inventaris/internal/masterdata/shared"
)

func TestTranslateError(t *testing.T) {
	serialization := fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
	deadlock := &pgconn.PgError{Code: "40P01"}
	unique := &pgconn.PgError{Code: "23505"}
	plain := errors.New("boom")

	assert.ErrorIs(t, translateError(serialization), shared.ErrConflict)
	assert.ErrorIs(t, translateError(deadlock), shared.ErrConflict)
	assert.Same(t, unique, translateError(unique))
	assert.Equal(t, plain, translateError(plain))
	assert.NoError(t, translateError(nil))
}
