package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/openface/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_history (
	match_id     TEXT PRIMARY KEY,
	room_code    TEXT NOT NULL,
	rounds       INTEGER NOT NULL,
	standings    JSONB NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS match_players (
	match_id  TEXT NOT NULL REFERENCES match_history (match_id) ON DELETE CASCADE,
	player_id TEXT NOT NULL,
	score     INTEGER NOT NULL,
	place     INTEGER NOT NULL,
	PRIMARY KEY (match_id, player_id)
);
CREATE INDEX IF NOT EXISTS match_history_completed_at_idx ON match_history (completed_at DESC);
`

// PostgresRecorder stores match history in Postgres
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and ensures the schema exists
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresRecorder, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	r := &PostgresRecorder{pool: pool}
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

var _ Recorder = (*PostgresRecorder)(nil)

// Migrate creates the history tables if they are missing
func (r *PostgresRecorder) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (r *PostgresRecorder) Close() {
	r.pool.Close()
}

func (r *PostgresRecorder) Record(ctx context.Context, summary *model.MatchSummary) error {
	standings, err := json.Marshal(summary.Standings)
	if err != nil {
		return err
	}

	err = pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO match_history (match_id, room_code, rounds, standings, started_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (match_id) DO UPDATE
			SET room_code = $2, rounds = $3, standings = $4, started_at = $5, completed_at = $6
		`
		if _, err := tx.Exec(ctx, upsertMatch,
			summary.MatchID, string(summary.Room), summary.Rounds, standings,
			summary.StartedAt, summary.CompletedAt,
		); err != nil {
			return err
		}

		for _, s := range summary.Standings {
			q := `
				INSERT INTO match_players (match_id, player_id, score, place)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (match_id, player_id)
				DO UPDATE SET score = $3, place = $4
			`
			if _, err := tx.Exec(ctx, q, summary.MatchID, string(s.UID), s.Score, s.Place); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record match %s: %w", summary.MatchID, err)
	}
	return nil
}

func (r *PostgresRecorder) Get(ctx context.Context, matchID string) (*model.MatchSummary, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT match_id, room_code, rounds, standings, started_at, completed_at
		FROM match_history WHERE match_id = $1
	`, matchID)
	summary, err := scanSummary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	return summary, err
}

func (r *PostgresRecorder) List(ctx context.Context, player model.PlayerID, limit int) ([]*model.MatchSummary, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if player == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT match_id, room_code, rounds, standings, started_at, completed_at
			FROM match_history
			ORDER BY completed_at DESC
			LIMIT $1
		`, normalizeLimit(limit))
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT h.match_id, h.room_code, h.rounds, h.standings, h.started_at, h.completed_at
			FROM match_history h
			JOIN match_players p ON p.match_id = h.match_id
			WHERE p.player_id = $1
			ORDER BY h.completed_at DESC
			LIMIT $2
		`, string(player), normalizeLimit(limit))
	}
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.MatchSummary, error) {
		return scanSummary(row)
	})
}

func scanSummary(row pgx.Row) (*model.MatchSummary, error) {
	var (
		summary   model.MatchSummary
		room      string
		standings []byte
	)
	if err := row.Scan(
		&summary.MatchID, &room, &summary.Rounds, &standings,
		&summary.StartedAt, &summary.CompletedAt,
	); err != nil {
		return nil, err
	}
	summary.Room = model.RoomCode(room)
	if err := json.Unmarshal(standings, &summary.Standings); err != nil {
		return nil, fmt.Errorf("decode standings: %w", err)
	}
	return &summary, nil
}
