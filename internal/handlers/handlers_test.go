package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/maze-server/internal/config"
	"github.com/vancomm/maze-server/internal/maze"
	"github.com/vancomm/maze-server/internal/middleware"
	"github.com/vancomm/maze-server/internal/repository"
	"github.com/vancomm/maze-server/internal/session"
)

type fakeLister struct {
	filter repository.MazeRunFilter
	runs   []repository.MazeRun
	err    error
}

func (f *fakeLister) ListMazeRuns(ctx context.Context, filter repository.MazeRunFilter) ([]repository.MazeRun, error) {
	f.filter = filter
	return f.runs, f.err
}

type testServer struct {
	*httptest.Server
	sessions *session.Manager
	jwt      *config.JWT
}

func newTestServer(t *testing.T, records RecordLister) *testServer {
	t.Helper()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.WarnLevel)

	sessions := session.NewManager(session.Config{
		MaxDimension: 50,
		DefaultDelay: time.Millisecond,
		TTL:          time.Minute,
		Logger:       log,
	})
	j := config.NewJWTWithSecret([]byte("test-secret"), time.Hour, false)
	ws, err := config.NewWebSocket()
	require.NoError(t, err)

	mz := NewMazeHandler(log, sessions, j, ws)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /maze", mz.Create)
	mux.HandleFunc("GET /maze", mz.List)
	mux.HandleFunc("GET /maze/{id}", mz.Fetch)
	mux.HandleFunc("POST /maze/{id}/cancel", mz.Cancel)
	mux.HandleFunc("GET /maze/{id}/connect", mz.Connect)
	mux.HandleFunc("GET /records", NewRecordsHandler(log, records).List)
	mux.HandleFunc("GET /status", StatusHandler(log, sessions, records != nil))

	srv := httptest.NewServer(middleware.Wrap(mux, middleware.Bearer(log, j)))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, sessions.Shutdown(ctx))
		srv.Close()
	})
	return &testServer{Server: srv, sessions: sessions, jwt: j}
}

func (s *testServer) create(t *testing.T, form url.Values) *http.Response {
	t.Helper()
	res, err := s.Client().PostForm(s.URL+"/maze", form)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func (s *testServer) mustCreate(t *testing.T, form url.Values) SessionDTO {
	t.Helper()
	res := s.create(t, form)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var dto SessionDTO
	require.NoError(t, json.NewDecoder(res.Body).Decode(&dto))
	return dto
}

func (s *testServer) do(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func (s *testServer) wait(t *testing.T, id string) {
	t.Helper()
	sess, err := s.sessions.Get(uuidOf(t, id))
	require.NoError(t, err)
	select {
	case <-sess.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestCreate(t *testing.T) {
	s := newTestServer(t, nil)

	res := s.create(t, url.Values{"width": {"6"}, "height": {"4"}, "seed": {"42"}})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var dto SessionDTO
	require.NoError(t, json.NewDecoder(res.Body).Decode(&dto))
	assert.Equal(t, "/maze/"+dto.SessionID, res.Header.Get("Location"))
	assert.Equal(t, 6, dto.Width)
	assert.Equal(t, 4, dto.Height)
	assert.Equal(t, "42", dto.Seed)
	assert.Equal(t, int64(1), dto.DelayMs)
	assert.Nil(t, dto.Snapshot)

	claims, err := s.jwt.ParseControlClaims(dto.Token)
	require.NoError(t, err)
	assert.Equal(t, dto.SessionID, claims.SessionID)
}

func TestCreateBadRequest(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		form url.Values
	}{
		{"missing height", url.Values{"width": {"5"}}},
		{"zero width", url.Values{"width": {"0"}, "height": {"5"}}},
		{"too large", url.Values{"width": {"51"}, "height": {"5"}}},
		{"not a number", url.Values{"width": {"five"}, "height": {"5"}}},
		{"start outside", url.Values{"width": {"3"}, "height": {"3"}, "start_x": {"3"}}},
		{"negative start", url.Values{"width": {"3"}, "height": {"3"}, "start_y": {"-1"}}},
		{"zero delay", url.Values{"width": {"3"}, "height": {"3"}, "delay_ms": {"0"}}},
		{"huge delay", url.Values{"width": {"3"}, "height": {"3"}, "delay_ms": {"10001"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.create(t, tt.form)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Zero(t, s.sessions.Len())
}

func TestFetch(t *testing.T) {
	s := newTestServer(t, nil)
	created := s.mustCreate(t, url.Values{"width": {"5"}, "height": {"5"}, "seed": {"7"}})
	s.wait(t, created.SessionID)

	res := s.do(t, http.MethodGet, "/maze/"+created.SessionID, "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var dto struct {
		SessionDTO
		Snapshot struct {
			Seq   uint64     `json:"seq"`
			Phase maze.Phase `json:"phase"`
			Stats maze.Stats `json:"stats"`
			Grid  struct {
				Width  int                 `json:"width"`
				Height int                 `json:"height"`
				Cells  [][]json.RawMessage `json:"cells"`
			} `json:"grid"`
		} `json:"snapshot"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&dto))
	assert.Equal(t, maze.PhaseSolved, dto.Phase)
	assert.Empty(t, dto.Token)
	assert.NotNil(t, dto.FinishedAt)
	assert.Equal(t, maze.PhaseSolved, dto.Snapshot.Phase)
	assert.Positive(t, dto.Snapshot.Stats.PathLength)
	assert.Equal(t, 5, dto.Snapshot.Grid.Width)
	assert.Len(t, dto.Snapshot.Grid.Cells, 5)
}

func TestFetchErrors(t *testing.T) {
	s := newTestServer(t, nil)

	res := s.do(t, http.MethodGet, "/maze/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = s.do(t, http.MethodGet, "/maze/00000000-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestList(t *testing.T) {
	s := newTestServer(t, nil)
	first := s.mustCreate(t, url.Values{"width": {"3"}, "height": {"3"}})
	second := s.mustCreate(t, url.Values{"width": {"4"}, "height": {"2"}})

	res := s.do(t, http.MethodGet, "/maze", "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var dtos []SessionDTO
	require.NoError(t, json.NewDecoder(res.Body).Decode(&dtos))
	require.Len(t, dtos, 2)
	ids := []string{dtos[0].SessionID, dtos[1].SessionID}
	assert.ElementsMatch(t, []string{first.SessionID, second.SessionID}, ids)
	for _, dto := range dtos {
		assert.Empty(t, dto.Token)
		assert.Nil(t, dto.Snapshot)
	}
}

func TestCancel(t *testing.T) {
	s := newTestServer(t, nil)
	slow := url.Values{"width": {"20"}, "height": {"20"}, "delay_ms": {"1000"}}
	target := s.mustCreate(t, slow)
	other := s.mustCreate(t, slow)
	path := "/maze/" + target.SessionID + "/cancel"

	res := s.do(t, http.MethodPost, path, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = s.do(t, http.MethodPost, path, "garbage")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = s.do(t, http.MethodPost, path, other.Token)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res = s.do(t, http.MethodPost, "/maze/00000000-0000-0000-0000-000000000000/cancel", target.Token)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = s.do(t, http.MethodPost, path, target.Token)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	s.wait(t, target.SessionID)

	res = s.do(t, http.MethodGet, "/maze/"+target.SessionID, "")
	var dto SessionDTO
	require.NoError(t, json.NewDecoder(res.Body).Decode(&dto))
	assert.Equal(t, maze.PhaseCancelled, dto.Phase)
	assert.Contains(t, dto.Error, context.Canceled.Error())

	res = s.do(t, http.MethodGet, "/maze/"+other.SessionID, "")
	require.NoError(t, json.NewDecoder(res.Body).Decode(&dto))
	assert.False(t, dto.Phase.Done())
}

func TestConnect(t *testing.T) {
	s := newTestServer(t, nil)
	created := s.mustCreate(t, url.Values{"width": {"5"}, "height": {"4"}, "delay_ms": {"1"}})

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/maze/" + created.SessionID + "/connect"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer res.Body.Close()
	defer conn.Close()

	var snaps []struct {
		Seq   uint64     `json:"seq"`
		Phase maze.Phase `json:"phase"`
	}
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var snap struct {
			Seq   uint64     `json:"seq"`
			Phase maze.Phase `json:"phase"`
		}
		err := conn.ReadJSON(&snap)
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			break
		}
		snaps = append(snaps, snap)
	}

	require.NotEmpty(t, snaps)
	for i := 1; i < len(snaps); i++ {
		assert.Less(t, snaps[i-1].Seq, snaps[i].Seq)
	}
	assert.Equal(t, maze.PhaseSolved, snaps[len(snaps)-1].Phase)
}

func TestConnectFinishedSession(t *testing.T) {
	s := newTestServer(t, nil)
	created := s.mustCreate(t, url.Values{"width": {"2"}, "height": {"2"}})
	s.wait(t, created.SessionID)

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/maze/" + created.SessionID + "/connect"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer res.Body.Close()
	defer conn.Close()

	var snap struct {
		Phase maze.Phase `json:"phase"`
	}
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, maze.PhaseSolved, snap.Phase)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestRecordsUnavailable(t *testing.T) {
	s := newTestServer(t, nil)
	res := s.do(t, http.MethodGet, "/records", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestRecords(t *testing.T) {
	lister := &fakeLister{runs: []repository.MazeRun{{SessionID: "a", Width: 3, Height: 3, Seed: "1", Phase: "solved"}}}
	s := newTestServer(t, lister)

	res := s.do(t, http.MethodGet, "/records?width=3&phase=solved&limit=5&unknown=1", "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var runs []repository.MazeRun
	require.NoError(t, json.NewDecoder(res.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "a", runs[0].SessionID)

	require.NotNil(t, lister.filter.Width)
	assert.Equal(t, 3, *lister.filter.Width)
	assert.Nil(t, lister.filter.Height)
	require.NotNil(t, lister.filter.Phase)
	assert.Equal(t, "solved", *lister.filter.Phase)
	assert.Equal(t, 5, lister.filter.Limit)

	res = s.do(t, http.MethodGet, "/records?width=wide", "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	lister.err = errors.New("connection refused")
	res = s.do(t, http.MethodGet, "/records", "")
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, &fakeLister{})
	s.mustCreate(t, url.Values{"width": {"2"}, "height": {"2"}})

	res := s.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var status Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	assert.Equal(t, Status{Status: "ok", Sessions: 1, Records: true}, status)
}

func uuidOf(t *testing.T, id string) uuid.UUID {
	t.Helper()
	u, err := uuid.Parse(id)
	require.NoError(t, err)
	return u
}
