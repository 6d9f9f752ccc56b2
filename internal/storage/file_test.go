package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	cfg := GuildConfig{
		GuildID:        "g1",
		CurrentNumber:  42,
		LastPosterID:   "u1",
		ChannelID:      "c1",
		TimeoutMinutes: 10,
		TimeoutRoleID:  "r1",
		ReactionEmoji:  "<:count:123>",
	}
	encoded := EncodeRecord(cfg)
	if encoded != "42\nu1\nc1\n10\nr1\n<:count:123>" {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	got, err := DecodeRecord("g1", encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != cfg {
		t.Fatalf("expected %+v, got %+v", cfg, got)
	}
}

func TestDecodeRecordMalformed(t *testing.T) {
	cases := []string{
		"",
		"1\nu\nc\n5\nr",
		"abc\nu\nc\n5\nr\n✅",
		"1\nu\nc\nfive\nr\n✅",
		"-1\nu\nc\n5\nr\n✅",
	}
	for _, data := range cases {
		if _, err := DecodeRecord("g1", data); !errors.Is(err, ErrMalformed) {
			t.Fatalf("decode %q: expected malformed, got %v", data, err)
		}
	}
}

func TestDecodeRecordTolerance(t *testing.T) {
	got, err := DecodeRecord("g1", "7\r\nu1\r\nc1\r\n5\r\nr1\r\n\r\nextra")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CurrentNumber != 7 || got.LastPosterID != "u1" || got.TimeoutRoleID != "r1" {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.ReactionEmoji != DefaultEmoji {
		t.Fatalf("expected default emoji for empty line, got %q", got.ReactionEmoji)
	}
}

func TestReactionEnabled(t *testing.T) {
	if (GuildConfig{ReactionEmoji: "NO"}).ReactionEnabled() {
		t.Fatalf("expected NO to disable reactions")
	}
	if !(GuildConfig{ReactionEmoji: "✅"}).ReactionEnabled() {
		t.Fatalf("expected emoji to enable reactions")
	}
}

func TestFileBackendLifecycle(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	ctx := context.Background()

	if _, err := backend.Load(ctx, "g1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := backend.UpdateProgress(ctx, "g1", 1, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}

	cfg := GuildConfig{GuildID: "g1", LastPosterID: NoPoster, ChannelID: "c1", TimeoutMinutes: 5, TimeoutRoleID: "r1", ReactionEmoji: "✅"}
	if err := backend.Save(ctx, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "g1.txt"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "0\n0\nc1\n5\nr1\n✅" {
		t.Fatalf("unexpected file content %q", data)
	}

	if err := backend.UpdateProgress(ctx, "g1", 1, "u1"); err != nil {
		t.Fatalf("update: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "g1.txt"))
	if string(data) != "1\nu1\nc1\n5\nr1\n✅" {
		t.Fatalf("unexpected file content after update %q", data)
	}

	got, err := backend.Load(ctx, "g1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CurrentNumber != 1 || got.LastPosterID != "u1" {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestFileBackendUpdateKeepsOtherLines(t *testing.T) {
	dir := t.TempDir()
	backend, _ := NewFileBackend(dir)
	raw := "3\nu1\nc1\n5\nr1\n no \n"
	if err := os.WriteFile(filepath.Join(dir, "g1.txt"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := backend.UpdateProgress(context.Background(), "g1", 4, "u2"); err != nil {
		t.Fatalf("update: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "g1.txt"))
	if string(data) != "4\nu2\nc1\n5\nr1\n no \n" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestFileBackendMalformedUpdate(t *testing.T) {
	dir := t.TempDir()
	backend, _ := NewFileBackend(dir)
	_ = os.WriteFile(filepath.Join(dir, "g1.txt"), []byte("3\nu1"), 0o644)
	if err := backend.UpdateProgress(context.Background(), "g1", 4, "u2"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestFileBackendRejectsPathTraversal(t *testing.T) {
	backend, _ := NewFileBackend(t.TempDir())
	for _, id := range []string{"", "..", "../etc", `a\b`} {
		if _, err := backend.Load(context.Background(), id); err == nil || errors.Is(err, ErrNotFound) {
			t.Fatalf("expected invalid id error for %q, got %v", id, err)
		}
	}
}
