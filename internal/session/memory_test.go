package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/shopping-recommender/internal/models"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	s := New("abc")
	s.Profile = models.UserProfile{Location: "Germany", FavoriteCategories: []string{"Books"}}
	require.NoError(t, store.Put(ctx, s))

	ok, err := store.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Germany", got.Profile.Location)
	assert.Equal(t, []string{"Books"}, got.Profile.FavoriteCategories)

	got.Profile.Location = "France"
	again, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Germany", again.Profile.Location, "stored sessions are copies")

	require.NoError(t, store.Delete(ctx, "abc"))
	assert.ErrorIs(t, store.Delete(ctx, "abc"), ErrNotFound)

	ok, err = store.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, New("short-lived")))
	assert.Equal(t, 1, store.Len())

	now = now.Add(2 * time.Minute)

	_, err := store.Get(ctx, "short-lived")
	assert.ErrorIs(t, err, ErrNotFound)
	ok, _ := store.Exists(ctx, "short-lived")
	assert.False(t, ok)
	assert.Zero(t, store.Len())

	require.NoError(t, store.Put(ctx, New("fresh")))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_RejectsMissingID(t *testing.T) {
	store := NewMemoryStore(0)
	assert.Error(t, store.Put(context.Background(), &Session{}))
	assert.Error(t, store.Put(context.Background(), nil))
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", i%10)
			_ = store.Put(ctx, New(id))
			_, _ = store.Get(ctx, id)
			_, _ = store.Exists(ctx, id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, store.Len())
}
