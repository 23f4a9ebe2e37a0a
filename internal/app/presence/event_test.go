package presence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoord_UnmarshalTolerance(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Coord
	}{
		{"number", `{"x": 42.5}`, Coord{Value: 42.5, Valid: true}},
		{"zero", `{"x": 0}`, Coord{Value: 0, Valid: true}},
		{"absent", `{}`, Coord{}},
		{"null", `{"x": null}`, Coord{}},
		{"string", `{"x": "12"}`, Coord{}},
		{"object", `{"x": {"v": 1}}`, Coord{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				X Coord `json:"x"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.input), &payload))
			assert.Equal(t, tt.want, payload.X)
		})
	}
}

func TestRegisterPayload_PartialInput(t *testing.T) {
	raw := `{"userId":"alice","firstName":"Alice","x":"not-a-number"}`

	var p RegisterPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "alice", p.UserID)
	assert.Equal(t, "Alice", p.FirstName)
	assert.False(t, p.X.Valid)
	assert.False(t, p.Y.Valid)
}

func TestEncodeEvent(t *testing.T) {
	frame, err := EncodeEvent(EvtUserLeft, UserLeftEvent{UserID: "alice"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"userLeft","payload":{"userId":"alice"}}`, string(frame))

	var evt Event
	require.NoError(t, json.Unmarshal(frame, &evt))
	assert.Equal(t, EvtUserLeft, evt.Type)
}
