package storage

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultCacheTTL = 30 * time.Second

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type cacheEntry struct {
	cfg      GuildConfig
	loadedAt time.Time
}

// Store fronts a Backend with a short-lived read cache.
type Store struct {
	backend Backend
	ttl     time.Duration
	clock   Clock
	logger  *zap.Logger
	group   singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
	gens    map[string]uint64
}

func NewStore(backend Backend, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Store{
		backend: backend,
		ttl:     ttl,
		clock:   realClock{},
		logger:  logger,
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),
	}
}

func (s *Store) WithClock(clock Clock) {
	s.clock = clock
}

// Get returns the guild's record. Missing and malformed records both report false.
func (s *Store) Get(ctx context.Context, guildID string) (GuildConfig, bool) {
	if cfg, ok := s.cached(guildID); ok {
		return cfg, true
	}

	s.mu.Lock()
	gen := s.gens[guildID]
	s.mu.Unlock()

	// Keyed by generation so callers arriving after an invalidation never
	// share a read that started before it.
	key := guildID + ":" + strconv.FormatUint(gen, 10)
	value, err, _ := s.group.Do(key, func() (any, error) {
		return s.backend.Load(ctx, guildID)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			s.logger.Debug("guild record absent", zap.String("guild_id", guildID))
		case errors.Is(err, ErrMalformed):
			s.logger.Error("guild record malformed", zap.String("guild_id", guildID), zap.Error(err))
		default:
			s.logger.Error("guild record read failed", zap.String("guild_id", guildID), zap.Error(err))
		}
		return GuildConfig{}, false
	}

	cfg := value.(GuildConfig)
	s.store(guildID, gen, cfg)
	return cfg, true
}

// Advance records an accepted count. A missing record is logged and ignored.
func (s *Store) Advance(ctx context.Context, guildID string, number int64, posterID string) error {
	err := s.backend.UpdateProgress(ctx, guildID, number, posterID)
	s.Invalidate(guildID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("advance without guild record", zap.String("guild_id", guildID))
		} else {
			s.logger.Error("advance failed", zap.String("guild_id", guildID), zap.Int64("number", number), zap.Error(err))
		}
		return err
	}
	return nil
}

// Setup overwrites the whole record and drops the cached copy before returning.
func (s *Store) Setup(ctx context.Context, cfg GuildConfig) error {
	err := s.backend.Save(ctx, cfg)
	s.Invalidate(cfg.GuildID)
	if err != nil {
		s.logger.Error("guild setup failed", zap.String("guild_id", cfg.GuildID), zap.Error(err))
	}
	return err
}

func (s *Store) Invalidate(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, guildID)
	s.gens[guildID]++
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) cached(guildID string) (GuildConfig, bool) {
	if s.ttl <= 0 {
		return GuildConfig{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[guildID]
	if !ok {
		return GuildConfig{}, false
	}
	if s.clock.Now().Sub(entry.loadedAt) >= s.ttl {
		delete(s.entries, guildID)
		return GuildConfig{}, false
	}
	return entry.cfg, true
}

// store caches cfg unless the guild was invalidated while it was being read.
func (s *Store) store(guildID string, gen uint64, cfg GuildConfig) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[guildID] != gen {
		return
	}
	s.entries[guildID] = cacheEntry{cfg: cfg, loadedAt: s.clock.Now()}
}
