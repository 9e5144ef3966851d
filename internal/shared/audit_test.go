package shared

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	sql  []string
	args [][]any
	tag  pgconn.CommandTag
	err  error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = append(r.sql, sql)
	r.args = append(r.args, args)
	return r.tag, r.err
}

func TestAuditRecordStoresAnonymousActorAsNull(t *testing.T) {
	db := &recordingExecer{}
	logger := NewAuditLogger(db)

	err := logger.Record(context.Background(), AuditLog{Action: "supplier.deleted", Entity: "supplier", EntityID: "9"})
	require.NoError(t, err)

	require.Len(t, db.args, 1)
	assert.Nil(t, db.args[0][0])
	at, ok := db.args[0][5].(time.Time)
	require.True(t, ok)
	assert.False(t, at.IsZero())
	assert.Equal(t, []byte("null"), db.args[0][4])
}

func TestAuditRecordRequiresTarget(t *testing.T) {
	logger := NewAuditLogger(&recordingExecer{})

	assert.Error(t, logger.Record(context.Background(), AuditLog{Action: "supplier.created"}))

	var nilLogger *AuditLogger
	assert.Error(t, nilLogger.Record(context.Background(), AuditLog{}))
}

func TestIdempotencyDuplicateKey(t *testing.T) {
	db := &recordingExecer{err: &pgconn.PgError{Code: "23505"}}
	store := NewIdempotencyStore(db)

	err := store.CheckAndInsert(context.Background(), "k", "suppliers.create")
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
}

func TestIdempotencyCleanupReportsRows(t *testing.T) {
	db := &recordingExecer{tag: pgconn.NewCommandTag("DELETE 3")}
	store := NewIdempotencyStore(db)

	n, err := store.Cleanup(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Contains(t, db.sql[0], "DELETE FROM idempotency_keys")
}

func TestIdempotencyValidatesInput(t *testing.T) {
	store := NewIdempotencyStore(&recordingExecer{})

	assert.Error(t, store.CheckAndInsert(context.Background(), "", "m"))
	assert.Error(t, store.CheckAndInsert(context.Background(), "k", ""))
}
