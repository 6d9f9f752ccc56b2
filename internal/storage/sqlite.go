package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteBackend stores guild records in a single counting_guilds table.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteBackend) Migrate() error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *SQLiteBackend) Load(ctx context.Context, guildID string) (GuildConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT current_number, last_poster_id, channel_id, timeout_minutes, timeout_role_id, reaction_emoji
		FROM counting_guilds WHERE guild_id = ?`, guildID)

	cfg := GuildConfig{GuildID: guildID}
	err := row.Scan(
		&cfg.CurrentNumber,
		&cfg.LastPosterID,
		&cfg.ChannelID,
		&cfg.TimeoutMinutes,
		&cfg.TimeoutRoleID,
		&cfg.ReactionEmoji,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GuildConfig{}, ErrNotFound
		}
		return GuildConfig{}, err
	}
	if cfg.CurrentNumber < 0 || cfg.TimeoutMinutes < 0 {
		return GuildConfig{}, fmt.Errorf("%w: negative field", ErrMalformed)
	}
	return normalize(cfg), nil
}

func (s *SQLiteBackend) Save(ctx context.Context, cfg GuildConfig) error {
	cfg = normalize(cfg)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counting_guilds (
			guild_id, current_number, last_poster_id, channel_id,
			timeout_minutes, timeout_role_id, reaction_emoji, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			current_number = excluded.current_number,
			last_poster_id = excluded.last_poster_id,
			channel_id = excluded.channel_id,
			timeout_minutes = excluded.timeout_minutes,
			timeout_role_id = excluded.timeout_role_id,
			reaction_emoji = excluded.reaction_emoji,
			updated_at = excluded.updated_at
	`,
		cfg.GuildID,
		cfg.CurrentNumber,
		cfg.LastPosterID,
		cfg.ChannelID,
		cfg.TimeoutMinutes,
		cfg.TimeoutRoleID,
		cfg.ReactionEmoji,
		time.Now().Unix(),
	)
	return err
}

func (s *SQLiteBackend) UpdateProgress(ctx context.Context, guildID string, number int64, posterID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE counting_guilds
		SET current_number = ?, last_poster_id = ?, updated_at = ?
		WHERE guild_id = ?`, number, posterID, time.Now().Unix(), guildID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
