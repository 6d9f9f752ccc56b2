package penalty

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakeTimer struct {
	stop bool
	fn   func()
}

func (t *fakeTimer) Stop() bool {
	t.stop = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	delays []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	f.delays = append(f.delays, d)
	return t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	pending := append([]*fakeTimer{}, f.timers...)
	f.timers = nil
	f.delays = nil
	f.mu.Unlock()
	for _, timer := range pending {
		if !timer.stop {
			timer.fn()
		}
	}
}

type roleCall struct {
	op      string
	guildID string
	userID  string
	roleID  string
}

type fakeRoles struct {
	mu     sync.Mutex
	calls  []roleCall
	addErr error
}

func (f *fakeRoles) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, roleCall{"add", guildID, userID, roleID})
	return f.addErr
}

func (f *fakeRoles) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, roleCall{"remove", guildID, userID, roleID})
	return nil
}

func (f *fakeRoles) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call.op == op {
			n++
		}
	}
	return n
}

func newTestRegistry() (*Registry, *fakeRoles, *fakeClock) {
	roles := &fakeRoles{}
	registry := New(roles, nil, zap.NewNop())
	clock := &fakeClock{now: time.Unix(0, 0)}
	registry.WithClock(clock)
	return registry, roles, clock
}

func TestTimeoutGrantsThenRemoves(t *testing.T) {
	registry, roles, clock := newTestRegistry()
	registry.Timeout(context.Background(), "g1", "u1", 5, "r1")
	registry.grants.Wait()

	if roles.count("add") != 1 {
		t.Fatalf("expected role grant")
	}
	if len(clock.delays) != 1 || clock.delays[0] != 5*time.Minute {
		t.Fatalf("expected removal armed for 5m, got %v", clock.delays)
	}
	if registry.Pending("g1") != 1 {
		t.Fatalf("expected one pending timeout")
	}

	clock.Advance(5 * time.Minute)
	if roles.count("remove") != 1 {
		t.Fatalf("expected role removal")
	}
	if registry.Pending("g1") != 0 {
		t.Fatalf("expected registry to be empty")
	}
}

func TestTimeoutReplacesPendingTimer(t *testing.T) {
	registry, roles, clock := newTestRegistry()
	ctx := context.Background()

	registry.Timeout(ctx, "g1", "u1", 5, "r1")
	registry.grants.Wait()
	first := clock.timers[0]

	registry.Timeout(ctx, "g1", "u1", 10, "r1")
	registry.grants.Wait()
	if !first.stop {
		t.Fatalf("expected previous timer to be stopped")
	}
	if registry.Pending("g1") != 1 {
		t.Fatalf("expected a single pending timeout per member")
	}

	clock.Advance(10 * time.Minute)
	if roles.count("remove") != 1 {
		t.Fatalf("expected exactly one removal, got %d", roles.count("remove"))
	}
}

func TestTimeoutGrantFailure(t *testing.T) {
	registry, roles, clock := newTestRegistry()
	roles.addErr = errors.New("missing permissions")

	registry.Timeout(context.Background(), "g1", "u1", 5, "r1")
	registry.grants.Wait()

	if len(clock.timers) != 0 {
		t.Fatalf("expected no removal timer after failed grant")
	}
	if registry.Pending("g1") != 0 {
		t.Fatalf("expected failed grant to be forgotten")
	}
}

func TestTimeoutDisabled(t *testing.T) {
	registry, roles, _ := newTestRegistry()
	registry.Timeout(context.Background(), "g1", "u1", 0, "r1")
	registry.Timeout(context.Background(), "g1", "u1", 5, "")
	registry.grants.Wait()
	if roles.count("add") != 0 {
		t.Fatalf("expected no grants")
	}
}

func TestCloseRevokesRoles(t *testing.T) {
	registry, roles, clock := newTestRegistry()
	ctx := context.Background()
	registry.Timeout(ctx, "g1", "u1", 5, "r1")
	registry.Timeout(ctx, "g1", "u2", 5, "r1")
	registry.grants.Wait()

	registry.Close(ctx)
	if roles.count("remove") != 2 {
		t.Fatalf("expected both roles revoked, got %d", roles.count("remove"))
	}
	for _, timer := range clock.timers {
		if !timer.stop {
			t.Fatalf("expected every timer stopped")
		}
	}

	registry.Timeout(ctx, "g1", "u3", 5, "r1")
	registry.grants.Wait()
	if roles.count("add") != 2 {
		t.Fatalf("expected no grants after close")
	}
}

func (f *fakeRoles) removed(roleID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call.op == "remove" && call.roleID == roleID {
			n++
		}
	}
	return n
}

func TestTimeoutWithNewRoleRemovesOldRole(t *testing.T) {
	registry, roles, clock := newTestRegistry()
	ctx := context.Background()

	registry.Timeout(ctx, "g1", "u1", 5, "r1")
	registry.grants.Wait()
	registry.Timeout(ctx, "g1", "u1", 5, "r2")
	registry.grants.Wait()

	if roles.removed("r1") != 1 {
		t.Fatalf("expected r1 to be removed when replaced by r2, calls=%v", roles.calls)
	}
	clock.Advance(time.Hour)
	if roles.removed("r2") != 1 {
		t.Fatalf("expected r2 to expire, calls=%v", roles.calls)
	}
	if registry.Pending("g1") != 0 {
		t.Fatalf("expected registry to be empty")
	}
}

func TestFailedReplacementRevokesHeldRole(t *testing.T) {
	registry, roles, clock := newTestRegistry()
	ctx := context.Background()

	registry.Timeout(ctx, "g1", "u1", 5, "r1")
	registry.grants.Wait()
	roles.mu.Lock()
	roles.addErr = errors.New("gateway unavailable")
	roles.mu.Unlock()
	registry.Timeout(ctx, "g1", "u1", 5, "r1")
	registry.grants.Wait()

	if roles.removed("r1") != 1 {
		t.Fatalf("expected the earlier grant to be revoked, calls=%v", roles.calls)
	}
	if registry.Pending("g1") != 0 {
		t.Fatalf("expected failed replacement to be forgotten")
	}
	clock.Advance(time.Hour)
	if roles.removed("r1") != 1 {
		t.Fatalf("expected no further removals, calls=%v", roles.calls)
	}
}

func TestReplacementWithSameRoleKeepsRole(t *testing.T) {
	registry, roles, _ := newTestRegistry()
	ctx := context.Background()

	registry.Timeout(ctx, "g1", "u1", 5, "r1")
	registry.grants.Wait()
	registry.Timeout(ctx, "g1", "u1", 5, "r1")
	registry.grants.Wait()

	if roles.count("remove") != 0 {
		t.Fatalf("same role must stay until the new timer expires, calls=%v", roles.calls)
	}
}
