package tmdb

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/reelchat/reelchat/internal/domain/catalog"
)

// genreCache holds the catalog genre list. Entries expire after ttl; a zero
// ttl keeps the first successful load for the life of the process. Failed or
// empty loads are never stored.
type genreCache struct {
	mu          sync.RWMutex
	genres      []catalog.Genre
	loadedAt    time.Time
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	group singleflight.Group
}

func newGenreCache(ttl, loadTimeout time.Duration) *genreCache {
	return &genreCache{ttl: ttl, loadTimeout: loadTimeout, now: time.Now}
}

func (c *genreCache) cached() ([]catalog.Genre, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.genres) == 0 {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	return c.genres, true
}

// get returns the cached list or calls load, collapsing concurrent loads.
// The shared load is detached from the caller that started it, so one
// cancelled caller cannot fail the others; each caller still stops waiting
// when its own ctx is done.
func (c *genreCache) get(ctx context.Context, load func(context.Context) ([]catalog.Genre, error)) ([]catalog.Genre, error) {
	if genres, ok := c.cached(); ok {
		return genres, nil
	}

	ch := c.group.DoChan("genres", func() (interface{}, error) {
		// 另一个调用者可能刚刚填充完
		if genres, ok := c.cached(); ok {
			return genres, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		genres, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if len(genres) > 0 {
			c.mu.Lock()
			c.genres = genres
			c.loadedAt = c.now()
			c.mu.Unlock()
		}
		return genres, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]catalog.Genre), nil
	}
}

func (c *genreCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genres = nil
	c.loadedAt = time.Time{}
}
