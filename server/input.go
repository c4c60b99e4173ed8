package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// 入站消息种类（JSON 中的 type 字段）
const (
	KindNewPlayer   = "newPlayer"
	KindMove        = "move"
	// KindStateUpdate 服务端推送的全量状态，沿用现有前端识别的 updateGameState
	KindStateUpdate = "updateGameState"
)

// maxExactPosition float64 能精确表示的最大整数（2^53）
const maxExactPosition = 1 << 53

// Inbound 客户端发起的变更请求，只有 NewPlayerRequest 与 MoveRequest 两种
type Inbound interface {
	Kind() string
	isInbound()
}

// NewPlayerRequest 注册（或覆盖）玩家
// 示例：{"type":"newPlayer","username":"alice","position":12,"color":"red"}
type NewPlayerRequest struct {
	Username string
	Position int
	Color    string
}

// MoveRequest 移动已注册玩家
// 示例：{"type":"move","username":"alice","position":13}
type MoveRequest struct {
	Username string
	Position int
}

func (NewPlayerRequest) Kind() string { return KindNewPlayer }
func (MoveRequest) Kind() string      { return KindMove }
func (NewPlayerRequest) isInbound()   {}
func (MoveRequest) isInbound()        {}

// inboundEnvelope 入站 JSON 的原始结构，position 延迟解析以区分“缺失”和“非整数”
type inboundEnvelope struct {
	Type     string          `json:"type"`
	Username string          `json:"username"`
	Position json.RawMessage `json:"position"`
	Color    string          `json:"color"`
}

// StateUpdateMessage 服务端下发的全量状态
type StateUpdateMessage struct {
	Type string `json:"type"`
	WorldSnapshot
}

// EncodeStateUpdate 将快照序列化为 updateGameState 消息
func EncodeStateUpdate(s WorldSnapshot) ([]byte, error) {
	return json.Marshal(StateUpdateMessage{Type: KindStateUpdate, WorldSnapshot: s})
}

// DecodeInbound 解析入站载荷。
// 非 JSON / 未知 type 返回 ErrMalformedMessage；字段缺失或 position 非整数返回 ErrValidation
func DecodeInbound(payload []byte) (Inbound, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch env.Type {
	case KindNewPlayer:
		pos, err := ParsePosition(env.Position)
		if err != nil {
			return nil, err
		}
		return NewPlayerRequest{Username: env.Username, Position: pos, Color: env.Color}, nil
	case KindMove:
		pos, err := ParsePosition(env.Position)
		if err != nil {
			return nil, err
		}
		return MoveRequest{Username: env.Username, Position: pos}, nil
	default:
		return nil, fmt.Errorf("%w: %w %q", ErrMalformedMessage, ErrUnknownKind, env.Type)
	}
}

// ParsePosition 要求 position 为 JSON 数字且取值为整数（5 与 5.0 均可，"5"、5.5、null 不可）。
// 不做网格范围检查，只拒绝超出 ±2^53 的值
func ParsePosition(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: position is required", ErrValidation)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%w: position must be an integer, got %s", ErrValidation, raw)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: position must be an integer, got %s", ErrValidation, raw)
	}
	if f > maxExactPosition || f < -maxExactPosition {
		return 0, fmt.Errorf("%w: position out of range, got %s", ErrValidation, raw)
	}
	return int(f), nil
}
