package export

import (
	"bytes"
	"encoding/json"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawboardgo/internal/crdt"
)

func TestRenderPNG(t *testing.T) {
	strokes := []crdt.Stroke{
		{
			ID:     "s1",
			Points: []crdt.Point{{X: 10, Y: 10}, {X: 90, Y: 40}, {X: 120, Y: 15}},
			Color:  "#336699",
			Width:  4,
		},
		{ID: "dot", Points: []crdt.Point{{X: 5, Y: 5}}, Color: "#000000", Width: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, 160, 90, "#ffffff", strokes))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 90, img.Bounds().Dy())
}

func TestRenderPNGEmptyDrawing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, 64, 64, "#102030", nil))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestRenderPNGRejectsBadSize(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderPNG(&buf, 0, 90, "#ffffff", nil), ErrCanvasSize)
	assert.ErrorIs(t, RenderPNG(&buf, 160, -1, "#ffffff", nil), ErrCanvasSize)
	// A stored row with an absurd size must fail fast, not allocate.
	assert.ErrorIs(t, RenderPNG(&buf, 1e12, 90, "#ffffff", nil), ErrCanvasSize)
	assert.ErrorIs(t, RenderPNG(&buf, 160, 1e12, "#ffffff", nil), ErrCanvasSize)
	assert.Zero(t, buf.Len())
}

func TestDecodeStrokesSkipsGarbage(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"id":"s1","points":[{"x":1,"y":2}],"color":"#000000","width":2}`),
		json.RawMessage(`"just a string"`),
		json.RawMessage(`{"id":"s2","color":"#ff0000","width":1}`),
	}

	strokes := DecodeStrokes(raw)
	require.Len(t, strokes, 2)
	assert.Equal(t, "s1", strokes[0].ID)
	assert.Equal(t, "s2", strokes[1].ID)
}
