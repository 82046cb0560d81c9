package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"interanxy-service/internal/app"
	"interanxy-service/internal/domain"
)

// RoomCache wraps a RoomRepository and caches Get lookups with a TTL, so the
// learner-facing hot path does not hit the backing store on every request.
// Writes pass through and invalidate the cached entry.
type RoomCache struct {
	inner app.RoomRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.Mutex
	cache map[string]cachedRoom
}

type cachedRoom struct {
	room      domain.Room
	expiresAt time.Time
}

func NewRoomCache(inner app.RoomRepository, ttl time.Duration) *RoomCache {
	return &RoomCache{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedRoom),
	}
}

func (c *RoomCache) Get(ctx context.Context, id string) (domain.Room, error) {
	now := c.clock()

	c.mu.Lock()
	if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
		c.mu.Unlock()
		return entry.room.Clone(), nil
	}
	c.mu.Unlock()

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		now := c.clock()
		c.mu.Lock()
		if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
			c.mu.Unlock()
			return entry.room, nil
		}
		c.mu.Unlock()

		room, err := c.inner.Get(ctx, id)
		if err != nil {
			return domain.Room{}, err
		}

		c.mu.Lock()
		c.cache[id] = cachedRoom{room: room, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return room, nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	return result.(domain.Room).Clone(), nil
}

// GetByCode is served by the backing store; join attempts are rare compared
// to in-room reads and must always observe freshly created rooms.
func (c *RoomCache) GetByCode(ctx context.Context, code string) (domain.Room, error) {
	return c.inner.GetByCode(ctx, code)
}

func (c *RoomCache) List(ctx context.Context) ([]domain.Room, error) {
	return c.inner.List(ctx)
}

func (c *RoomCache) Create(ctx context.Context, room domain.Room) error {
	return c.inner.Create(ctx, room)
}

func (c *RoomCache) Update(ctx context.Context, room domain.Room) error {
	if err := c.inner.Update(ctx, room); err != nil {
		return err
	}
	c.invalidate(room.ID)
	return nil
}

func (c *RoomCache) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

func (c *RoomCache) invalidate(id string) {
	c.mu.Lock()
	delete(c.cache, id)
	c.mu.Unlock()
}

func (c *RoomCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
