package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/maze-server/internal/repository"
)

var ErrNoRecords = errors.New("run records are not available")

type RecordLister interface {
	ListMazeRuns(ctx context.Context, filter repository.MazeRunFilter) ([]repository.MazeRun, error)
}

type RecordsQueryDTO struct {
	Width  *int    `schema:"width"`
	Height *int    `schema:"height"`
	Phase  *string `schema:"phase"`
	Limit  int     `schema:"limit"`
}

func ParseRecordsQueryDTO(src map[string][]string) (RecordsQueryDTO, error) {
	var dto RecordsQueryDTO
	err := newDecoder().Decode(&dto, src)
	return dto, err
}

type RecordsHandler struct {
	log  logrus.FieldLogger
	repo RecordLister
}

// NewRecordsHandler accepts a nil repo; List then answers 503.
func NewRecordsHandler(log logrus.FieldLogger, repo RecordLister) *RecordsHandler {
	return &RecordsHandler{log: log, repo: repo}
}

func (h RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		sendErrorOrLog(w, h.log, http.StatusServiceUnavailable, ErrNoRecords)
		return
	}

	dto, err := ParseRecordsQueryDTO(r.URL.Query())
	if err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}

	runs, err := h.repo.ListMazeRuns(r.Context(), repository.MazeRunFilter(dto))
	if err != nil {
		internalError(w, h.log, "unable to list runs", err)
		return
	}
	sendJSONOrLog(w, h.log, http.StatusOK, runs)
}
