package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StaticDir = ""
	return NewApp(cfg, nil, WithRandom(&queueRandom{values: []int{27, 30}}))
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetGameState(t *testing.T) {
	app := newTestApp(t)
	_, err := app.World.UpsertPlayer("alice", 12, "red")
	require.NoError(t, err)

	rec := doRequest(t, app.Handler, http.MethodGet, "/api/game-state", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t,
		`{"players":{"alice":{"position":12,"color":"red"}},"ballPosition":30,"obstacles":[5,16,27,38,49,60,71,82,93,104]}`,
		rec.Body.String())
}

func TestUpdateGame(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantSuccess bool
		wantMessage string
	}{
		{
			name:        "new player",
			body:        `{"type":"newPlayer","username":"alice","position":0,"color":"green"}`,
			wantStatus:  http.StatusOK,
			wantSuccess: true,
			wantMessage: "player added",
		},
		{
			name:       "missing color",
			body:       `{"type":"newPlayer","username":"alice","position":0}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non integer position",
			body:       `{"type":"newPlayer","username":"alice","position":"x","color":"red"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "move unknown player",
			body:       `{"type":"move","username":"bob","position":3}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown type",
			body:       `{"type":"dance","username":"bob"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"type":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)

			rec := doRequest(t, app.Handler, http.MethodPost, "/api/update-game", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code)
			var resp UpdateResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantSuccess, resp.Success)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, resp.Message)
			}
			if !tt.wantSuccess {
				assert.Empty(t, app.World.Snapshot().Players)
				assert.Equal(t, int64(0), app.Hub.Metrics().Broadcasts)
			}
		})
	}
}

func TestUpdateGameMoveBroadcastsToSubscribers(t *testing.T) {
	app := newTestApp(t)
	sub := newFakeSubscriber("ws")
	app.Hub.Subscribe(sub)

	rec := doRequest(t, app.Handler, http.MethodPost, "/api/update-game",
		`{"type":"newPlayer","username":"alice","position":0,"color":"green"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, app.Handler, http.MethodPost, "/api/update-game",
		`{"type":"move","username":"alice","position":4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UpdateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "player moved", resp.Message)
	require.NotNil(t, resp.Player)
	assert.Equal(t, PlayerSnapshot{Username: "alice", Position: 4, Color: "green"}, *resp.Player)
	assert.Len(t, sub.received(), 3)
}

func TestUpdateGameWrongMethod(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app.Handler, http.MethodGet, "/api/update-game", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/update-game", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	app.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisallowedOrigin(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api/game-state", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()

	app.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsAndHealthz(t *testing.T) {
	app := newTestApp(t)
	doRequest(t, app.Handler, http.MethodPost, "/api/update-game",
		`{"type":"newPlayer","username":"alice","position":0,"color":"green"}`)

	rec := doRequest(t, app.Handler, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Players int              `json:"players"`
		Metrics map[string]int64 `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 1, payload.Players)
	assert.Equal(t, int64(1), payload.Metrics["mutations_accepted"])

	rec = doRequest(t, app.Handler, http.MethodGet, "/healthz", "")
	assert.Equal(t, "ok", rec.Body.String())
}
