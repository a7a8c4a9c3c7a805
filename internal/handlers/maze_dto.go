package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gorilla/schema"

	"github.com/vancomm/maze-server/internal/maze"
	"github.com/vancomm/maze-server/internal/session"
)

func newDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

const maxDelayMs = 10_000

var ErrBadDelay = errors.New("delay_ms must be between 1 and 10000")

type CreateMazeDTO struct {
	Width   int     `schema:"width,required"`
	Height  int     `schema:"height,required"`
	DelayMs *int    `schema:"delay_ms"`
	StartX  int     `schema:"start_x"`
	StartY  int     `schema:"start_y"`
	Seed    *uint64 `schema:"seed"`
}

func ParseCreateMazeDTO(src map[string][]string) (CreateMazeDTO, error) {
	var dto CreateMazeDTO
	if err := newDecoder().Decode(&dto, src); err != nil {
		return dto, err
	}
	if dto.DelayMs != nil && (*dto.DelayMs < 1 || *dto.DelayMs > maxDelayMs) {
		return dto, ErrBadDelay
	}
	return dto, nil
}

func (d CreateMazeDTO) Params() session.Params {
	p := session.Params{
		Width:  d.Width,
		Height: d.Height,
		Start:  maze.Coord(d.StartX, d.StartY),
		Seed:   d.Seed,
	}
	if d.DelayMs != nil {
		p.Delay = time.Duration(*d.DelayMs) * time.Millisecond
	}
	return p
}

type SessionDTO struct {
	SessionID  string         `json:"session_id"`
	Token      string         `json:"token,omitempty"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Seed       string         `json:"seed"`
	DelayMs    int64          `json:"delay_ms"`
	Phase      maze.Phase     `json:"phase"`
	CreatedAt  int64          `json:"created_at"`
	FinishedAt *int64         `json:"finished_at,omitempty"`
	Error      string         `json:"error,omitempty"`
	Snapshot   *maze.Snapshot `json:"snapshot,omitempty"`
}

func NewSessionDTO(s *session.Session, withSnapshot bool) *SessionDTO {
	snap := s.Snapshot()
	p := s.Params()
	dto := &SessionDTO{
		SessionID: s.ID.String(),
		Width:     p.Width,
		Height:    p.Height,
		Seed:      strconv.FormatUint(s.Seed(), 10),
		DelayMs:   p.Delay.Milliseconds(),
		Phase:     snap.Phase,
		CreatedAt: s.CreatedAt.UnixMilli(),
	}
	if finishedAt, ok := s.FinishedAt(); ok {
		f := finishedAt.UnixMilli()
		dto.FinishedAt = &f
		if err := s.Err(); err != nil {
			dto.Error = err.Error()
		}
	}
	if withSnapshot {
		dto.Snapshot = snap
	}
	return dto
}
