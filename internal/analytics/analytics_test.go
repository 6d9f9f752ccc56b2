package analytics

import (
	"context"
	"testing"
	"time"

	"counter-bot/internal/modules/audit"
)

func TestReportCountsSince(t *testing.T) {
	svc := New(0)
	ctx := context.Background()
	base := time.Unix(1000, 0)

	svc.Record(ctx, audit.Entry{GuildID: "g1", Level: audit.LevelInfo, Event: audit.EventAccepted, CreatedAt: base})
	svc.Record(ctx, audit.Entry{GuildID: "g1", Level: audit.LevelInfo, Event: audit.EventAccepted, CreatedAt: base.Add(time.Minute)})
	svc.Record(ctx, audit.Entry{GuildID: "g1", Level: audit.LevelWarn, Event: audit.EventPenalty, CreatedAt: base.Add(2 * time.Minute)})
	svc.Record(ctx, audit.Entry{GuildID: "g2", Level: audit.LevelInfo, Event: audit.EventAccepted, CreatedAt: base})

	report := svc.Report(ctx, "g1", base.Add(30*time.Second))
	if report.Total != 2 {
		t.Fatalf("expected 2 entries, got %d", report.Total)
	}
	if report.ByEvent[audit.EventAccepted] != 1 || report.ByEvent[audit.EventPenalty] != 1 {
		t.Fatalf("unexpected events %+v", report.ByEvent)
	}
	if report.ByLevel[audit.LevelWarn] != 1 {
		t.Fatalf("unexpected levels %+v", report.ByLevel)
	}
}

func TestRetentionDropsOldest(t *testing.T) {
	svc := New(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		svc.Record(ctx, audit.Entry{GuildID: "g1", Event: audit.EventAccepted, CreatedAt: time.Unix(int64(i), 0)})
	}
	if report := svc.Report(ctx, "g1", time.Time{}); report.Total != 2 {
		t.Fatalf("expected retention of 2, got %d", report.Total)
	}
}
