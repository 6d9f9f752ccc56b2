package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores guild records in PostgreSQL using the same schema as
// the SQLite backend.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(ctx context.Context, url string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresBackend) Migrate(ctx context.Context) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := p.pool.Exec(ctx, string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (p *PostgresBackend) Load(ctx context.Context, guildID string) (GuildConfig, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT current_number, last_poster_id, channel_id, timeout_minutes, timeout_role_id, reaction_emoji
		FROM counting_guilds WHERE guild_id = $1`, guildID)

	cfg := GuildConfig{GuildID: guildID}
	var minutes int32
	err := row.Scan(&cfg.CurrentNumber, &cfg.LastPosterID, &cfg.ChannelID, &minutes, &cfg.TimeoutRoleID, &cfg.ReactionEmoji)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GuildConfig{}, ErrNotFound
		}
		return GuildConfig{}, err
	}
	cfg.TimeoutMinutes = int(minutes)
	if cfg.CurrentNumber < 0 || cfg.TimeoutMinutes < 0 {
		return GuildConfig{}, fmt.Errorf("%w: negative field", ErrMalformed)
	}
	return normalize(cfg), nil
}

func (p *PostgresBackend) Save(ctx context.Context, cfg GuildConfig) error {
	cfg = normalize(cfg)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO counting_guilds (
			guild_id, current_number, last_poster_id, channel_id,
			timeout_minutes, timeout_role_id, reaction_emoji, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (guild_id) DO UPDATE SET
			current_number = excluded.current_number,
			last_poster_id = excluded.last_poster_id,
			channel_id = excluded.channel_id,
			timeout_minutes = excluded.timeout_minutes,
			timeout_role_id = excluded.timeout_role_id,
			reaction_emoji = excluded.reaction_emoji,
			updated_at = excluded.updated_at
	`, cfg.GuildID, cfg.CurrentNumber, cfg.LastPosterID, cfg.ChannelID,
		int32(cfg.TimeoutMinutes), cfg.TimeoutRoleID, cfg.ReactionEmoji, time.Now().Unix())
	return err
}

func (p *PostgresBackend) UpdateProgress(ctx context.Context, guildID string, number int64, posterID string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE counting_guilds
		SET current_number = $1, last_poster_id = $2, updated_at = $3
		WHERE guild_id = $4`, number, posterID, time.Now().Unix(), guildID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
