package usercache

import (
	"context"
	"strconv"
	"sync"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"golang.org/x/sync/singleflight"
)

// Loader fetches users the cache has not seen. Loaders are expected to
// populate the cache themselves, typically through UpsertMany.
type Loader interface {
	LoadUser(ctx context.Context, id int64) (*models.User, error)
}

// Cache is the shared id-keyed lookup of user profiles. A miss is reported
// as a miss, never as a synthesized placeholder.
type Cache interface {
	// UpsertMany stores users by id and reports how many entries changed.
	UpsertMany(users ...models.User) int
	Lookup(id int64) (models.User, bool)
	// Resolve reads through the loader on a miss. It returns false when the
	// user is unknown and no loader could provide it.
	Resolve(ctx context.Context, id int64) (models.User, bool, error)
	SetLoader(l Loader)
	Len() int
}

type cache struct {
	items sync.Map // int64 -> models.User

	mu     sync.RWMutex
	loader Loader
	group  singleflight.Group
}

func New() Cache {
	return &cache{}
}

func (c *cache) SetLoader(l Loader) {
	c.mu.Lock()
	c.loader = l
	c.mu.Unlock()
}

func (c *cache) UpsertMany(users ...models.User) int {
	changed := 0
	for _, u := range users {
		if u.ID <= 0 {
			continue
		}
		prev, loaded := c.items.Swap(u.ID, u)
		if !loaded || prev.(models.User) != u {
			changed++
		}
	}
	return changed
}

func (c *cache) Lookup(id int64) (models.User, bool) {
	v, ok := c.items.Load(id)
	if !ok {
		return models.User{}, false
	}
	return v.(models.User), true
}

func (c *cache) Resolve(ctx context.Context, id int64) (models.User, bool, error) {
	if u, ok := c.Lookup(id); ok {
		return u, true, nil
	}

	c.mu.RLock()
	loader := c.loader
	c.mu.RUnlock()
	if loader == nil || id <= 0 {
		return models.User{}, false, nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return loader.LoadUser(ctx, id)
	})
	if err != nil {
		return models.User{}, false, err
	}
	u, _ := v.(*models.User)
	if u == nil {
		return models.User{}, false, nil
	}
	c.UpsertMany(*u)
	return *u, true, nil
}

func (c *cache) Len() int {
	n := 0
	c.items.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
