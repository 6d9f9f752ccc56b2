package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileBackend keeps one <guildID>.txt file per guild in a directory.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create guilds dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Load(ctx context.Context, guildID string) (GuildConfig, error) {
	path, err := b.path(guildID)
	if err != nil {
		return GuildConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return GuildConfig{}, ErrNotFound
		}
		return GuildConfig{}, err
	}
	return DecodeRecord(guildID, string(data))
}

func (b *FileBackend) Save(ctx context.Context, cfg GuildConfig) error {
	path, err := b.path(cfg.GuildID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return writeAtomic(path, EncodeRecord(cfg))
}

// UpdateProgress rewrites lines 0 and 1 and leaves the rest of the file as is.
func (b *FileBackend) UpdateProgress(ctx context.Context, guildID string, number int64, posterID string) error {
	path, err := b.path(guildID)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	updated, err := AdvanceRecord(guildID, string(data), number, posterID)
	if err != nil {
		return err
	}
	return writeAtomic(path, updated)
}

func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) path(guildID string) (string, error) {
	if guildID == "" || guildID == "." || guildID == ".." || strings.ContainsAny(guildID, `/\`) {
		return "", fmt.Errorf("invalid guild id %q", guildID)
	}
	return filepath.Join(b.dir, guildID+".txt"), nil
}

func writeAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
