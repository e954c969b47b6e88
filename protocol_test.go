package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClientReq(t *testing.T) {
	req, err := decodeClientReq([]byte(`{"type":"join","lobby":"Cats","nick":"alice"}`))
	require.NoError(t, err)

	join, ok := req.(joinReq)
	require.True(t, ok)
	assert.Equal(t, "Cats", join.Lobby)
	assert.Equal(t, "alice", join.Nick)

	req, err = decodeClientReq([]byte(`{"type":"guess","guess":"aircraft"}`))
	require.NoError(t, err)
	assert.Equal(t, guessReq{Type: "guess", Guess: "aircraft"}, req)

	req, err = decodeClientReq([]byte(`{"type":"canvas","event":{"kind":"line","from":{"x":1,"y":2},"to":{"x":3,"y":4},"width":2,"color":"#000000"}}`))
	require.NoError(t, err)
	canvas, ok := req.(canvasReq)
	require.True(t, ok)
	assert.Equal(t, CanvasLine, canvas.Event.Kind)
	assert.Equal(t, Point{X: 3, Y: 4}, canvas.Event.To)
}

func TestDecodeClientReqRejectsUnknownTag(t *testing.T) {
	_, err := decodeClientReq([]byte(`{"type":"teleport"}`))
	assert.Error(t, err)

	_, err = decodeClientReq([]byte(`not json`))
	assert.Error(t, err)
}

func TestClampCoord(t *testing.T) {
	assert.Equal(t, int16(100), clampCoord(100))
	assert.Equal(t, int16(coordMax), clampCoord(5000))
	assert.Equal(t, int16(coordMin), clampCoord(-5000))
}

func TestShouldForward(t *testing.T) {
	var (
		me    UserID             = 7
		them  UserID             = 8
		epoch Epoch[UserSession] = 3
	)

	cases := []struct {
		name      string
		b         broadcast
		forward   bool
		terminate bool
	}{
		{"everyone", everyone("x"), true, false},
		{"exclude other", excluding(them, "x"), true, false},
		{"exclude self", excluding(me, "x"), false, false},
		{"only self", only(me, "x"), true, false},
		{"only other", only(them, "x"), false, false},
		{"kill match", kill(me, epoch), false, true},
		{"kill wrong epoch", kill(me, epoch+1), false, false},
		{"kill other", kill(them, epoch), false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			forward, terminate := tc.b.shouldForward(me, epoch)
			assert.Equal(t, tc.forward, forward)
			assert.Equal(t, tc.terminate, terminate)
		})
	}
}
