package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueRandom 按顺序返回预设值，用完后返回 0
type queueRandom struct {
	values []int
	calls  int
}

func (r *queueRandom) Intn(n int) int {
	r.calls++
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	r.values = r.values[1:]
	return v
}

func TestObstaclesAreMiddleColumn(t *testing.T) {
	w := NewWorld()
	assert.Equal(t, []int{5, 16, 27, 38, 49, 60, 71, 82, 93, 104}, w.Snapshot().Obstacles)
}

func TestInitializeBallNeverOnObstacle(t *testing.T) {
	for i := 0; i < 500; i++ {
		w := NewWorld()
		ball := w.BallPosition()
		require.GreaterOrEqual(t, ball, 0)
		require.Less(t, ball, GridCells)
		require.False(t, w.IsObstacle(ball), "ball placed on obstacle %d", ball)
	}
}

func TestInitializeBallRetriesOnObstacle(t *testing.T) {
	rng := &queueRandom{values: []int{5, 16, 104, 42}}
	w := NewWorld(WithRandom(rng))

	assert.Equal(t, 42, w.BallPosition())
	assert.Equal(t, 4, rng.calls)
}

func TestUpsertPlayerOverwrites(t *testing.T) {
	w := NewWorld()

	_, err := w.UpsertPlayer("alice", 12, "red")
	require.NoError(t, err)
	p, err := w.UpsertPlayer("alice", 40, "blue")
	require.NoError(t, err)

	assert.Equal(t, PlayerSnapshot{Username: "alice", Position: 40, Color: "blue"}, p)
	snap := w.Snapshot()
	require.Len(t, snap.Players, 1)
	assert.Equal(t, PlayerState{Position: 40, Color: "blue"}, snap.Players["alice"])
}

func TestUpsertPlayerValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		color    string
	}{
		{name: "empty username", username: "", color: "red"},
		{name: "empty color", username: "x", color: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld()
			_, err := w.UpsertPlayer(tt.username, 1, tt.color)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, w.Snapshot().Players)
		})
	}
}

func TestMovePlayerUnknown(t *testing.T) {
	w := NewWorld()

	_, err := w.MovePlayer("bob", 5)

	assert.ErrorIs(t, err, ErrUnknownPlayer)
	assert.Empty(t, w.Snapshot().Players)
}

func TestMovePlayerKeepsColorAndSkipsRangeChecks(t *testing.T) {
	w := NewWorld()
	_, err := w.UpsertPlayer("alice", 0, "green")
	require.NoError(t, err)

	// 位置不做越界与障碍物检查
	p, err := w.MovePlayer("alice", 500)
	require.NoError(t, err)
	assert.Equal(t, PlayerSnapshot{Username: "alice", Position: 500, Color: "green"}, p)

	p, err = w.MovePlayer("alice", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Position)
}

func TestSnapshotIsDetached(t *testing.T) {
	w := NewWorld()
	_, err := w.UpsertPlayer("alice", 1, "red")
	require.NoError(t, err)

	snap := w.Snapshot()
	snap.Players["mallory"] = PlayerState{Position: 3, Color: "black"}
	snap.Obstacles[0] = 99

	fresh := w.Snapshot()
	assert.NotContains(t, fresh.Players, "mallory")
	assert.Equal(t, 5, fresh.Obstacles[0])
}
