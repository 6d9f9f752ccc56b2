package bot

import (
	"context"
	"testing"
	"time"

	"counter-bot/internal/analytics"
	"counter-bot/internal/config"
	"counter-bot/internal/modules/penalty"
	"counter-bot/internal/parser"
	"counter-bot/internal/sanitize"
	"counter-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type allowRoles struct{}

func (allowRoles) GuildMemberRoleAdd(string, string, string, ...discordgo.RequestOption) error {
	return nil
}

func (allowRoles) GuildMemberRoleRemove(string, string, string, ...discordgo.RequestOption) error {
	return nil
}

type fixedEvaluator struct{}

func (fixedEvaluator) Calculate(context.Context, string) (float64, error) { return 2, nil }

func TestStatusEmbedShowsTimeoutsAndBudget(t *testing.T) {
	ctx := context.Background()
	registry := penalty.New(allowRoles{}, nil, zap.NewNop())
	defer registry.Close(ctx)
	registry.Timeout(ctx, "g1", "u1", 5, "r1")
	registry.Timeout(ctx, "g2", "u2", 5, "r1")

	textParser := parser.New(sanitize.New(sanitize.DefaultLimits(), zap.NewNop()), fixedEvaluator{}, parser.Budget{Requests: 30, Window: time.Minute}, zap.NewNop())
	if _, ok := textParser.Parse(ctx, "g1", "1+1"); !ok {
		t.Fatalf("expected evaluated expression")
	}

	b := &Bot{
		cfg:       config.Config{Language: "en"},
		logger:    zap.NewNop(),
		parser:    textParser,
		penalty:   registry,
		analytics: analytics.New(0),
	}
	embed := b.statusEmbed(ctx, "en", storage.GuildConfig{GuildID: "g1", CurrentNumber: 4, LastPosterID: storage.NoPoster, ChannelID: "c1", TimeoutMinutes: 5, TimeoutRoleID: "r1", ReactionEmoji: "✅"})

	values := make(map[string]string)
	for _, field := range embed.Fields {
		values[field.Name] = field.Value
	}
	if values["Members timed out"] != "1" {
		t.Fatalf("expected one timed out member in g1, got %q", values["Members timed out"])
	}
	if values["Evaluator budget"] != "1/30" {
		t.Fatalf("expected 1/30 budget, got %q", values["Evaluator budget"])
	}
	if values["Next number"] != "5" || values["Last counter"] != "none" {
		t.Fatalf("unexpected status fields %v", values)
	}
}
