package directory

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/techsched/core/logger"
	"github.com/kilianp07/techsched/core/model"
	logpkg "github.com/kilianp07/techsched/infra/logger"
)

// Cache holds the last successfully loaded directory snapshot.
type Cache struct {
	src Directory
	log logger.Logger

	mu       sync.RWMutex
	byID     map[string]model.Student
	students []model.Student
	loadedAt time.Time
}

// NewCache wraps src. The cache is empty until Refresh succeeds.
func NewCache(src Directory, log logger.Logger) *Cache {
	if log == nil {
		log = logpkg.New("directory-cache")
	}
	return &Cache{src: src, log: log, byID: map[string]model.Student{}}
}

// Refresh reloads the snapshot. On error the previous snapshot is kept.
func (c *Cache) Refresh(ctx context.Context) error {
	students, err := c.src.Students(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]model.Student, len(students))
	for _, s := range students {
		if _, dup := byID[s.ID]; !dup {
			byID[s.ID] = s
		}
	}
	c.mu.Lock()
	c.byID = byID
	c.students = students
	c.loadedAt = time.Now()
	c.mu.Unlock()
	c.log.Infof("loaded %d students into cache", len(students))
	return nil
}

// Lookup returns the student with the given directory id.
func (c *Cache) Lookup(id string) (model.Student, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	return s, ok
}

// Students implements Directory from the cached snapshot.
func (c *Cache) Students(context.Context) ([]model.Student, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Student, len(c.students))
	copy(out, c.students)
	return out, nil
}

// LoadedAt returns when the snapshot was last refreshed.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Run refreshes the cache every interval until ctx is cancelled.
// A non-positive interval disables periodic refresh.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.log.Warnf("directory refresh failed: %v", err)
			}
		}
	}
}
