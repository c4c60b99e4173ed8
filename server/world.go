package server

import (
	"fmt"
	"math/rand"
	"sync"
)

// Random 随机数来源，便于测试时注入确定序列
type Random interface {
	// Intn 返回 [0, n) 内的随机整数
	Intn(n int) int
}

type mathRandom struct{}

func (mathRandom) Intn(n int) int { return rand.Intn(n) }

// WorldOption 构造 World 时的可选配置
type WorldOption func(*World)

// WithRandom 替换球位置初始化使用的随机数来源
func WithRandom(r Random) WorldOption {
	return func(w *World) { w.rng = r }
}

// WorldSnapshot 某一时刻世界状态的只读副本（可直接序列化）
type WorldSnapshot struct {
	Players      map[string]PlayerState `json:"players"`
	BallPosition int                    `json:"ballPosition"`
	Obstacles    []int                  `json:"obstacles"`
}

// World 权威世界状态：玩家表、球位置、障碍物。只做校验与读写，不感知传输层
type World struct {
	mu sync.RWMutex

	players      map[string]Player
	ballPosition int
	obstacles    []int
	obstacleSet  map[int]struct{}

	rng Random
}

// NewWorld 创建世界并放置球，须在任何连接接入之前调用
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		players: make(map[string]Player),
		rng:     mathRandom{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.obstacles = buildObstacles()
	w.obstacleSet = make(map[int]struct{}, len(w.obstacles))
	for _, cell := range w.obstacles {
		w.obstacleSet[cell] = struct{}{}
	}
	w.InitializeBall()
	return w
}

// buildObstacles 每行一个障碍物，位于中间列
func buildObstacles() []int {
	obstacles := make([]int, 0, GridRows)
	for row := 0; row < GridRows; row++ {
		obstacles = append(obstacles, row*GridCols+ObstacleCol)
	}
	return obstacles
}

// IsObstacle 判断格子是否为障碍物
func (w *World) IsObstacle(cell int) bool {
	_, ok := w.obstacleSet[cell]
	return ok
}

// InitializeBall 在 [0, GridCells) 中均匀随机选择非障碍格放置球；拒绝采样，不设重试上限
func (w *World) InitializeBall() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		cell := w.rng.Intn(GridCells)
		if !w.IsObstacle(cell) {
			w.ballPosition = cell
			return cell
		}
	}
}

// BallPosition 当前球位置
func (w *World) BallPosition() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ballPosition
}

// UpsertPlayer 新增或整体覆盖玩家记录（同名不合并）
func (w *World) UpsertPlayer(username string, position int, color string) (PlayerSnapshot, error) {
	if username == "" {
		return PlayerSnapshot{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if color == "" {
		return PlayerSnapshot{}, fmt.Errorf("%w: color is required", ErrValidation)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	p := Player{Position: position, Color: color}
	w.players[username] = p
	return p.snapshot(username), nil
}

// MovePlayer 更新已存在玩家的位置。不检查越界、相邻或碰撞
func (w *World) MovePlayer(username string, position int) (PlayerSnapshot, error) {
	if username == "" {
		return PlayerSnapshot{}, fmt.Errorf("%w: username is required", ErrValidation)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[username]
	if !ok {
		return PlayerSnapshot{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, username)
	}
	p.Position = position
	w.players[username] = p
	return p.snapshot(username), nil
}

// Snapshot 返回同一时刻的深拷贝，调用方可自由持有
func (w *World) Snapshot() WorldSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	players := make(map[string]PlayerState, len(w.players))
	for name, p := range w.players {
		players[name] = p.state()
	}
	return WorldSnapshot{
		Players:      players,
		BallPosition: w.ballPosition,
		Obstacles:    append([]int(nil), w.obstacles...),
	}
}

// PlayerCount 当前注册的玩家数
func (w *World) PlayerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.players)
}
