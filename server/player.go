package server

// 网格尺寸：10 行 × 11 列，格子编号 = row*GridCols + col（行优先，从 0 开始）
const (
	GridRows  = 10
	GridCols  = 11
	GridCells = GridRows * GridCols

	// ObstacleCol 障碍物所在列（每行中间一列）
	ObstacleCol = 5
)

// Player 服务端权威的玩家记录，以用户名为键保存在 World 中
type Player struct {
	Position int
	Color    string
}

// PlayerState 为广播给客户端的玩家状态
type PlayerState struct {
	Position int    `json:"position"`
	Color    string `json:"color"`
}

// PlayerSnapshot 一次成功变更后生效的玩家记录
type PlayerSnapshot struct {
	Username string `json:"username"`
	Position int    `json:"position"`
	Color    string `json:"color"`
}

func (p Player) state() PlayerState {
	return PlayerState{Position: p.Position, Color: p.Color}
}

func (p Player) snapshot(username string) PlayerSnapshot {
	return PlayerSnapshot{Username: username, Position: p.Position, Color: p.Color}
}
