package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxRequestBody = 1 << 16

// UpdateResponse POST /api/update-game 的响应体
type UpdateResponse struct {
	Message string          `json:"message"`
	Success bool            `json:"success"`
	Player  *PlayerSnapshot `json:"player,omitempty"`
}

// GameAPI 请求/响应形式的接入面，与 WebSocket 共用同一个 SyncHub
type GameAPI struct {
	hub *SyncHub
	log *zap.SugaredLogger
}

func NewGameAPI(hub *SyncHub, log *zap.SugaredLogger) *GameAPI {
	return &GameAPI{hub: hub, log: log}
}

// GetGameState GET /api/game-state 返回当前完整快照
func (a *GameAPI) GetGameState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.hub.World().Snapshot())
}

// UpdateGame POST /api/update-game
// 载荷：{"type":"newPlayer"|"move","username":"...","position":0,"color":"..."}
func (a *GameAPI) UpdateGame(w http.ResponseWriter, r *http.Request) {
	a.hub.Metrics().IncReceived()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, UpdateResponse{Message: "invalid request"})
		return
	}

	msg, err := DecodeInbound(body)
	if err != nil {
		if errors.Is(err, ErrMalformedMessage) {
			a.hub.Metrics().IncMalformed()
		} else {
			a.hub.Metrics().IncRejected()
		}
		a.log.Infof("update-game rejected: %v", err)
		writeJSON(w, http.StatusBadRequest, UpdateResponse{Message: "invalid request: " + err.Error()})
		return
	}

	p, err := a.hub.Apply(nil, msg)
	if err != nil {
		status := http.StatusBadRequest
		if !IsRejection(err) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, UpdateResponse{Message: "invalid request: " + err.Error()})
		return
	}

	text := "player added"
	if msg.Kind() == KindMove {
		text = "player moved"
	}
	writeJSON(w, http.StatusOK, UpdateResponse{Message: text, Success: true, Player: &p})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
