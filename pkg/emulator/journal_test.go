package emulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jdziat/simple-lambda-runtime/pkg/runtimeapi"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	j := NewJournal(db)
	require.NoError(t, j.Migrate(context.Background()))
	return j
}

func TestJournal_RecordAndComplete(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, "id-1", []byte(`"hello"`)))

	rec, err := j.Get(ctx, "id-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, `"hello"`, string(rec.Payload))
	assert.Nil(t, rec.CompletedAt)

	require.NoError(t, j.Complete(ctx, "id-1", []byte(`"hello back"`)))

	rec, err = j.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, `"hello back"`, string(rec.Response))
	assert.NotNil(t, rec.CompletedAt)
}

func TestJournal_RecordAndFail(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, "id-1", []byte(`{}`)))
	require.NoError(t, j.Fail(ctx, "id-1", runtimeapi.Diagnostic{
		ErrorMessage: "boom",
		ErrorType:    "*errors.errorString",
	}))

	rec, err := j.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "boom", rec.ErrorMessage)
	assert.Equal(t, "*errors.errorString", rec.ErrorType)
}

func TestJournal_CompleteUnknownID(t *testing.T) {
	j := newTestJournal(t)
	err := j.Complete(context.Background(), "no-such-id", nil)
	assert.ErrorIs(t, err, ErrUnknownInvocation)
}

func TestJournal_GetUnknownIDIsNil(t *testing.T) {
	j := newTestJournal(t)
	rec, err := j.Get(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestJournal_Recent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for _, id := range []string{"id-1", "id-2", "id-3"} {
		require.NoError(t, j.Record(ctx, id, []byte(`{}`)))
	}

	recs, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestJournal_ServerIntegration(t *testing.T) {
	j := newTestJournal(t)
	server := NewServer(WithJournal(j))
	ctx := context.Background()

	id, err := server.Enqueue(ctx, []byte(`"hello"`))
	require.NoError(t, err)

	rec, err := j.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusPending, rec.Status)
}
