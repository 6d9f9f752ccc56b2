package analytics

import (
	"context"
	"sync"
	"time"

	"counter-bot/internal/modules/audit"
)

const defaultRetention = 1000

// Service keeps the most recent audit entries per guild in memory.
type Service struct {
	mu        sync.RWMutex
	retention int
	entries   map[string][]audit.Entry
}

func New(retention int) *Service {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Service{retention: retention, entries: make(map[string][]audit.Entry)}
}

type Report struct {
	Total   int
	ByLevel map[string]int
	ByEvent map[string]int
}

func (s *Service) Record(_ context.Context, entry audit.Entry) {
	if entry.GuildID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.entries[entry.GuildID], entry)
	if over := len(list) - s.retention; over > 0 {
		list = append([]audit.Entry(nil), list[over:]...)
	}
	s.entries[entry.GuildID] = list
}

func (s *Service) Report(_ context.Context, guildID string, since time.Time) Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := Report{ByLevel: make(map[string]int), ByEvent: make(map[string]int)}
	for _, entry := range s.entries[guildID] {
		if entry.CreatedAt.Before(since) {
			continue
		}
		report.Total++
		report.ByLevel[entry.Level]++
		report.ByEvent[entry.Event]++
	}
	return report
}
