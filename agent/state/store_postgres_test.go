package state

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Runs against a real database only when CHATIVE_TEST_POSTGRES_DSN is set.
func newTestPostgres(t *testing.T) *PostgresDocumentStore {
	t.Helper()
	dsn := os.Getenv("CHATIVE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CHATIVE_TEST_POSTGRES_DSN not set")
	}

	db, err := OpenPostgres(PostgresConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewPostgresDocumentStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := OpenPostgres(PostgresConfig{})
	require.Error(t, err)
	_, err = NewPostgresDocumentStore(nil)
	require.Error(t, err)
}

func TestPostgresDocumentRoundTrip(t *testing.T) {
	store := newTestPostgres(t)
	ctx := context.Background()
	id := uuid.NewString()

	_, err := store.Get(ctx, id)
	require.ErrorIs(t, err, ErrDocumentNotFound)

	require.NoError(t, store.Set(ctx, id, []byte(`{"step":"AWAITING_SERVICE"}`)))
	doc, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.JSONEq(t, `{"step":"AWAITING_SERVICE"}`, string(doc))
}

func TestPostgresCompareAndSetIsConditional(t *testing.T) {
	store := newTestPostgres(t)
	ctx := context.Background()
	id := uuid.NewString()
	now := time.Now().UTC()
	mark := ReplyMark{Signature: ReplySignature("Oi!"), At: now}
	cond := ReplyCondition{SignatureNot: mark.Signature, OlderThan: now.Add(-time.Minute)}

	n, err := store.CompareAndSet(ctx, id, cond, mark)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = store.CompareAndSet(ctx, id, cond, mark)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, store.Set(ctx, id, []byte(`{"step":"AWAITING_CONFIRM"}`)))
	n, err = store.CompareAndSet(ctx, id, cond, mark)
	require.NoError(t, err)
	require.Zero(t, n, "document writes must not reset the reply mark")

	later := now.Add(2 * time.Minute)
	n, err = store.CompareAndSet(ctx, id,
		ReplyCondition{SignatureNot: mark.Signature, OlderThan: later.Add(-time.Minute)},
		ReplyMark{Signature: mark.Signature, At: later},
	)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
