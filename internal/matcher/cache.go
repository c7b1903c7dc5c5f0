package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jask/budgetforecast/internal/model"
)

// TargetSource loads targets for the cache.
type TargetSource interface {
	ActiveTargets(ctx context.Context) ([]model.Target, error)
	FindTarget(ctx context.Context, key model.TargetKey) (*model.Target, error)
}

// Cache keeps one Matcher per active target. It loads lazily and must be
// told about every target change through Invalidate.
type Cache struct {
	src    TargetSource
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	byKey  map[model.TargetKey]*Matcher
	stale  map[model.TargetKey]struct{}
}

func NewCache(src TargetSource, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		src:    src,
		logger: logger,
		byKey:  make(map[model.TargetKey]*Matcher),
		stale:  make(map[model.TargetKey]struct{}),
	}
}

// Invalidate marks key for reload on next access. Call it after a target is
// created, edited, archived or deleted.
func (c *Cache) Invalidate(key model.TargetKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return
	}
	delete(c.byKey, key)
	c.stale[key] = struct{}{}
}

// Reset drops everything; the next access reloads from the source.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	clear(c.byKey)
	clear(c.stale)
}

// Matchers returns the matchers of all active targets ordered by key.
func (c *Cache) Matchers(ctx context.Context) ([]*Matcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sync(ctx); err != nil {
		return nil, err
	}
	out := make([]*Matcher, 0, len(c.byKey))
	for _, m := range c.byKey {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *Matcher) int {
		switch {
		case a.Key().Less(b.Key()):
			return -1
		case b.Key().Less(a.Key()):
			return 1
		}
		return 0
	})
	return out, nil
}

// sync expects c.mu to be held.
func (c *Cache) sync(ctx context.Context) error {
	if !c.loaded {
		targets, err := c.src.ActiveTargets(ctx)
		if err != nil {
			return fmt.Errorf("load matchers: %w", err)
		}
		for _, t := range targets {
			if !t.Archived {
				c.byKey[t.Key()] = New(t)
			}
		}
		c.loaded = true
		c.logger.Debug("matcher cache loaded", "matchers", len(c.byKey))
		return nil
	}
	for key := range c.stale {
		t, err := c.src.FindTarget(ctx, key)
		if err != nil {
			return fmt.Errorf("reload matcher %s: %w", key, err)
		}
		delete(c.stale, key)
		if t == nil || t.Archived {
			c.logger.Debug("matcher dropped", "target", key.String())
			continue
		}
		c.byKey[key] = New(*t)
		c.logger.Debug("matcher reloaded", "target", key.String())
	}
	return nil
}
