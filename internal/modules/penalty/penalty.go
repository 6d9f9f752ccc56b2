package penalty

import (
	"context"
	"sync"
	"time"

	"counter-bot/internal/modules/audit"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

// RoleManager is the subset of *discordgo.Session used to apply timeouts.
type RoleManager interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

type pending struct {
	gen     uint64
	guildID string
	userID  string
	roleID  string
	timer   Timer
	// held is set when a replaced timeout may have left roleID on the member.
	held bool
}

// Registry owns the grant -> removal chain of every timed out member.
type Registry struct {
	api    RoleManager
	clock  Clock
	audit  *audit.Logger
	logger *zap.Logger

	mu      sync.Mutex
	seq     uint64
	closed  bool
	pending map[string]*pending
	grants  sync.WaitGroup
}

func New(api RoleManager, auditLogger *audit.Logger, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		api:     api,
		clock:   realClock{},
		audit:   auditLogger,
		logger:  logger,
		pending: make(map[string]*pending),
	}
}

func (r *Registry) WithClock(clock Clock) {
	r.clock = clock
}

// Timeout grants roleID to the member and removes it after minutes.
// A new timeout for the same member replaces the pending one.
func (r *Registry) Timeout(ctx context.Context, guildID, userID string, minutes int, roleID string) {
	if minutes <= 0 || roleID == "" || userID == "" {
		return
	}
	key := memberKey(guildID, userID)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.seq++
	gen := r.seq
	next := &pending{gen: gen, guildID: guildID, userID: userID, roleID: roleID}
	prev := r.pending[key]
	if prev != nil {
		if prev.timer != nil {
			prev.timer.Stop()
		}
		next.held = prev.roleID == roleID
	}
	r.pending[key] = next
	r.grants.Add(1)
	if prev != nil && prev.timer != nil && prev.roleID != roleID {
		r.grants.Add(1)
		go func() {
			defer r.grants.Done()
			r.revoke(context.Background(), prev)
		}()
	}
	r.mu.Unlock()

	go r.grant(ctx, key, gen, time.Duration(minutes)*time.Minute)
}

// Pending reports how many members of guildID are currently timed out.
func (r *Registry) Pending(guildID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.pending {
		if p.guildID == guildID {
			n++
		}
	}
	return n
}

// Close stops every timer and revokes the roles they would have removed.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	r.closed = true
	armed := make([]*pending, 0, len(r.pending))
	for key, p := range r.pending {
		if p.timer != nil {
			p.timer.Stop()
			armed = append(armed, p)
			delete(r.pending, key)
		}
	}
	r.mu.Unlock()

	for _, p := range armed {
		r.revoke(ctx, p)
	}

	done := make(chan struct{})
	go func() {
		r.grants.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("timeout grants still in flight at shutdown", zap.Error(ctx.Err()))
	}
}

func (r *Registry) grant(ctx context.Context, key string, gen uint64, duration time.Duration) {
	defer r.grants.Done()

	r.mu.Lock()
	p := r.pending[key]
	r.mu.Unlock()
	if p == nil || p.gen != gen {
		return
	}

	if err := r.api.GuildMemberRoleAdd(p.guildID, p.userID, p.roleID, discordgo.WithContext(ctx)); err != nil {
		r.logger.Warn("timeout role grant failed", zap.String("guild_id", p.guildID), zap.String("user_id", p.userID), zap.String("role_id", p.roleID), zap.Error(err))
		r.mu.Lock()
		cur := r.pending[key]
		if cur != nil && cur.gen == gen {
			delete(r.pending, key)
		}
		r.mu.Unlock()
		// A later timeout with the same role takes over the earlier grant.
		if p.held && (cur == nil || cur.gen == gen || cur.roleID != p.roleID) {
			r.revoke(context.Background(), p)
		}
		return
	}
	r.audit.Log(ctx, audit.LevelWarn, p.guildID, p.userID, audit.EventPenalty, "timeout "+duration.String())

	r.mu.Lock()
	cur := r.pending[key]
	switch {
	case cur == nil || cur.gen != gen:
		r.mu.Unlock()
		if cur == nil || cur.roleID != p.roleID {
			r.revoke(context.Background(), p)
		}
	case r.closed:
		delete(r.pending, key)
		r.mu.Unlock()
		r.revoke(context.Background(), p)
	default:
		cur.timer = r.clock.AfterFunc(duration, func() { r.expire(key, gen) })
		r.mu.Unlock()
	}
}

func (r *Registry) expire(key string, gen uint64) {
	r.mu.Lock()
	p := r.pending[key]
	if p == nil || p.gen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.pending, key)
	r.mu.Unlock()

	r.revoke(context.Background(), p)
}

func (r *Registry) revoke(ctx context.Context, p *pending) {
	if err := r.api.GuildMemberRoleRemove(p.guildID, p.userID, p.roleID, discordgo.WithContext(ctx)); err != nil {
		r.logger.Warn("timeout role removal failed", zap.String("guild_id", p.guildID), zap.String("user_id", p.userID), zap.String("role_id", p.roleID), zap.Error(err))
		return
	}
	r.logger.Debug("timeout lifted", zap.String("guild_id", p.guildID), zap.String("user_id", p.userID), zap.Uint64("gen", p.gen))
}

func memberKey(guildID, userID string) string {
	return guildID + ":" + userID
}
