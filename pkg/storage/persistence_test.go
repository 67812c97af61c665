package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, store *MemoryStore) {
	t.Helper()
	users, err := store.Collection("users")
	require.NoError(t, err)
	client := NewClient(users)
	for _, doc := range []domain.Document{
		{"name": "Alice", "age": 30, "address": map[string]interface{}{"city": "NYC"}},
		{"name": "Bob", "age": 25, "tags": []interface{}{"a", "b"}},
		{"name": "Charlie", "age": 35},
	} {
		_, err := client.Insert(doc)
		require.NoError(t, err)
	}

	posts, err := store.Collection("posts")
	require.NoError(t, err)
	_, err = NewClient(posts).Insert(domain.Document{"_id": "p1", "title": "Hello"})
	require.NoError(t, err)
}

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "data"+FileExtension)

	store := NewMemoryStore()
	seedStore(t, store)
	require.NoError(t, store.SaveToFile(file))

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(16))

	loaded := NewMemoryStore()
	require.NoError(t, loaded.LoadFromFile(file))
	assert.Equal(t, []string{"posts", "users"}, loaded.Names())

	users, err := loaded.Collection("users")
	require.NoError(t, err)
	client := NewClient(users)

	ids, err := client.ListIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	doc, err := client.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", doc["name"])
	assert.Equal(t, 30.0, doc["age"])
	assert.Equal(t, map[string]interface{}{"city": "NYC"}, doc["address"])

	doc, err = client.Get("2")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, doc["tags"])

	// the id counter survives the round trip
	id, err := client.Insert(domain.Document{"name": "Dave"})
	require.NoError(t, err)
	assert.Equal(t, "4", id)
}

func TestMemoryStore_LoadMissingFile(t *testing.T) {
	store := NewMemoryStore()
	err := store.LoadFromFile(filepath.Join(t.TempDir(), "missing.gdoc"))
	require.NoError(t, err)
	assert.Empty(t, store.Names())
}

func TestMemoryStore_LoadCorruptFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "corrupt.gdoc")
	require.NoError(t, os.WriteFile(file, []byte("not a snapshot at all"), 0644))

	store := NewMemoryStore()
	err := store.LoadFromFile(file)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file header")
}

func TestMemoryStore_CloseWritesSnapshot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "close.gdoc")

	store := NewMemoryStore(WithDataFile(file))
	seedStore(t, store)
	require.NoError(t, store.Close())

	_, err := os.Stat(file)
	require.NoError(t, err)

	_, err = store.Collection("users")
	assert.Error(t, err, "closed store should not hand out collections")

	reopened := NewMemoryStore(WithDataFile(file))
	require.NoError(t, reopened.LoadFromFile(file))
	users, err := reopened.Collection("users")
	require.NoError(t, err)
	assert.Equal(t, 3, users.(*MemoryCore).Len())
}

func TestMemoryStore_BackgroundSave(t *testing.T) {
	file := filepath.Join(t.TempDir(), "background.gdoc")

	store := NewMemoryStore(WithDataFile(file), WithBackgroundSave(20*time.Millisecond))
	store.StartBackgroundWorkers()
	defer store.StopBackgroundWorkers()

	seedStore(t, store)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(file)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return !store.isDirty()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryStore_GetMemoryStats(t *testing.T) {
	store := NewMemoryStore()
	seedStore(t, store)

	stats := store.GetMemoryStats()
	assert.Equal(t, 2, stats["collections"])
	assert.Equal(t, 4, stats["documents"])
	assert.Greater(t, stats["document_bytes"].(int64), int64(0))
}
