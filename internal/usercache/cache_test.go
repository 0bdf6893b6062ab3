package usercache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loaderFunc func(ctx context.Context, id int64) (*models.User, error)

func (f loaderFunc) LoadUser(ctx context.Context, id int64) (*models.User, error) {
	return f(ctx, id)
}

func TestUpsertManyReportsChanges(t *testing.T) {
	c := New()

	n := c.UpsertMany(models.User{ID: 1, Username: "ann"}, models.User{ID: 2, Username: "bob"}, models.User{ID: 0, Username: "ghost"})
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.Len())

	n = c.UpsertMany(models.User{ID: 1, Username: "ann"}, models.User{ID: 2, Username: "bobby"})
	assert.Equal(t, 1, n)

	u, ok := c.Lookup(2)
	assert.True(t, ok)
	assert.Equal(t, "bobby", u.Username)
}

func TestLookupMissIsAbsent(t *testing.T) {
	c := New()
	u, ok := c.Lookup(42)
	assert.False(t, ok)
	assert.Equal(t, models.User{}, u)
}

func TestResolveWithoutLoader(t *testing.T) {
	c := New()
	_, ok, err := c.Resolve(t.Context(), 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveReadsThrough(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})
	c.SetLoader(loaderFunc(func(ctx context.Context, id int64) (*models.User, error) {
		calls.Add(1)
		<-release
		return &models.User{ID: id, Username: "carol"}, nil
	}))

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, ok, err := c.Resolve(context.Background(), 7)
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "carol", u.Username)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	_, ok := c.Lookup(7)
	assert.True(t, ok)
}

func TestResolveLoaderMissAndError(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	c.SetLoader(loaderFunc(func(ctx context.Context, id int64) (*models.User, error) {
		if id == 1 {
			return nil, boom
		}
		return nil, nil
	}))

	_, _, err := c.Resolve(t.Context(), 1)
	assert.ErrorIs(t, err, boom)

	_, ok, err := c.Resolve(t.Context(), 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
