package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vancomm/maze-server/internal/session"
)

type MazeRun struct {
	MazeRunID     int64     `db:"maze_run_id" json:"maze_run_id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	Width         int       `db:"width" json:"width"`
	Height        int       `db:"height" json:"height"`
	Seed          string    `db:"seed" json:"seed"`
	Phase         string    `db:"phase" json:"phase"`
	Steps         int       `db:"steps" json:"steps"`
	WallsRemoved  int       `db:"walls_removed" json:"walls_removed"`
	CellsExplored int       `db:"cells_explored" json:"cells_explored"`
	Backtracks    int       `db:"backtracks" json:"backtracks"`
	PathLength    int       `db:"path_length" json:"path_length"`
	Error         *string   `db:"error" json:"error,omitempty"`
	StartedAt     time.Time `db:"started_at" json:"started_at"`
	EndedAt       time.Time `db:"ended_at" json:"ended_at"`
	CreatedAt     time.Time `db:"created_at" json:"-"`
}

type CreateMazeRunParams struct {
	SessionID     string
	Width         int
	Height        int
	Seed          uint64
	Phase         string
	Steps         int
	WallsRemoved  int
	CellsExplored int
	Backtracks    int
	PathLength    int
	Error         string
	StartedAt     time.Time
	EndedAt       time.Time
}

func (p CreateMazeRunParams) Args() pgx.NamedArgs {
	args := pgx.NamedArgs{
		"session_id":     p.SessionID,
		"width":          p.Width,
		"height":         p.Height,
		"seed":           strconv.FormatUint(p.Seed, 10),
		"phase":          p.Phase,
		"steps":          p.Steps,
		"walls_removed":  p.WallsRemoved,
		"cells_explored": p.CellsExplored,
		"backtracks":     p.Backtracks,
		"path_length":    p.PathLength,
		"error":          nil,
		"started_at":     p.StartedAt,
		"ended_at":       p.EndedAt,
	}
	if p.Error != "" {
		args["error"] = p.Error
	}
	return args
}

func (q *Queries) CreateMazeRun(ctx context.Context, params CreateMazeRunParams) (*MazeRun, error) {
	rows, _ := q.db.Query(
		ctx,
		`INSERT INTO maze_run (
			session_id, width, height, seed, phase, steps, walls_removed,
			cells_explored, backtracks, path_length, error, started_at, ended_at
		)
		VALUES (
			@session_id, @width, @height, @seed, @phase, @steps, @walls_removed,
			@cells_explored, @backtracks, @path_length, @error, @started_at, @ended_at
		)
		RETURNING *;`,
		params.Args(),
	)
	run, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[MazeRun])
	if err != nil {
		return nil, mapError(err)
	}
	return run, nil
}

// Record implements [session.Recorder].
func (q *Queries) Record(ctx context.Context, r session.Result) error {
	_, err := q.CreateMazeRun(ctx, CreateMazeRunParams{
		SessionID:     r.SessionID.String(),
		Width:         r.Width,
		Height:        r.Height,
		Seed:          r.Seed,
		Phase:         string(r.Phase),
		Steps:         r.Stats.Steps,
		WallsRemoved:  r.Stats.WallsRemoved,
		CellsExplored: r.Stats.CellsExplored,
		Backtracks:    r.Stats.Backtracks,
		PathLength:    r.Stats.PathLength,
		Error:         r.Error,
		StartedAt:     r.StartedAt,
		EndedAt:       r.EndedAt,
	})
	return err
}

const defaultRunLimit = 50

type MazeRunFilter struct {
	Width  *int
	Height *int
	Phase  *string
	Limit  int
}

func (f MazeRunFilter) WhereClause() (string, pgx.NamedArgs) {
	clauses := make([]string, 0)
	args := pgx.NamedArgs{}
	if f.Width != nil {
		clauses = append(clauses, "width = @width")
		args["width"] = *f.Width
	}
	if f.Height != nil {
		clauses = append(clauses, "height = @height")
		args["height"] = *f.Height
	}
	if f.Phase != nil {
		clauses = append(clauses, "phase = @phase")
		args["phase"] = *f.Phase
	}
	return strings.Join(clauses, " AND "), args
}

func (q *Queries) ListMazeRuns(ctx context.Context, filter MazeRunFilter) ([]MazeRun, error) {
	query := "SELECT * FROM maze_run"

	whereClause, args := filter.WhereClause()
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultRunLimit {
		limit = defaultRunLimit
	}
	args["limit"] = limit
	query += " ORDER BY ended_at DESC LIMIT @limit;"

	rows, err := q.db.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[MazeRun])
}
