package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/emlanis/secret-ai-writer/internal/model"
)

// newTestDB инициализирует in-memory SQLite (modernc.org/sqlite) для тестов репозитория
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// отдельная именованная in-memory БД на каждый тест
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	if err := db.AutoMigrate(&model.DraftRecord{}); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func record(owner, content string, at time.Time) *model.DraftRecord {
	id, _ := uuid.NewV7()
	return &model.DraftRecord{
		ID:            id.String(),
		Owner:         owner,
		ContentCipher: []byte(content),
		ContentNonce:  []byte{1},
		TxHash:        "tx-" + content,
		CreatedAt:     at,
	}
}

func TestDraftRepository_CreateLatestList(t *testing.T) {
	r := NewDraftRepository(newTestDB(t))
	ctx := context.Background()

	_, err := r.Latest(ctx, "alice")
	assert.ErrorIs(t, err, ErrDraftNotFound)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, r.Create(ctx, record("alice", "first", base)))
	require.NoError(t, r.Create(ctx, record("alice", "second", base.Add(time.Minute))))
	require.NoError(t, r.Create(ctx, record("bob", "other", base.Add(2*time.Minute))))

	latest, err := r.Latest(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "second", string(latest.ContentCipher))

	list, err := r.ListByOwner(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", string(list[0].ContentCipher))
	assert.Equal(t, "first", string(list[1].ContentCipher))

	limited, err := r.ListByOwner(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDraftRepository_GetDelete(t *testing.T) {
	r := NewDraftRepository(newTestDB(t))
	ctx := context.Background()
	rec := record("alice", "x", time.Now())
	require.NoError(t, r.Create(ctx, rec))

	got, err := r.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "tx-x", got.TxHash)

	// чужой владелец не может удалить
	deleted, err := r.Delete(ctx, "bob", rec.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = r.Delete(ctx, "alice", rec.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = r.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestInitDB_SQLiteFile(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "journal.sqlite")
	db, err := InitDB(dsn)
	require.NoError(t, err)
	defer Close(db)

	r := NewDraftRepository(db)
	require.NoError(t, r.Create(context.Background(), record("alice", "persisted", time.Now())))
	latest, err := r.Latest(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(latest.ContentCipher))

	_, err = InitDB("")
	assert.Error(t, err)
}
