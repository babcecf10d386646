// Package export renders a drawing's stroke content to PNG.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gogpu/gg"

	"drawboardgo/internal/crdt"
)

// maxDimension bounds the rasterized canvas. Stored drawings are validated
// on write, but the renderer guards independently against rows that predate
// the check or bypass the service.
const maxDimension = 8192

var ErrCanvasSize = errors.New("canvas dimensions out of range")

// RenderPNG rasterizes strokes onto a filled background and writes the PNG
// to w. Strokes with fewer than two points are skipped.
func RenderPNG(w io.Writer, width, height float64, background string, strokes []crdt.Stroke) error {
	if width <= 0 || height <= 0 || width > maxDimension || height > maxDimension {
		return ErrCanvasSize
	}

	dc := gg.NewContext(int(width), int(height))
	defer dc.Close()

	dc.SetHexColor(background)
	dc.Clear()

	for _, s := range strokes {
		if len(s.Points) < 2 {
			continue
		}
		dc.SetHexColor(s.Color)
		dc.SetLineWidth(s.Width)
		dc.SetLineCap(gg.LineCapRound)
		dc.SetLineJoin(gg.LineJoinRound)
		dc.MoveTo(s.Points[0].X, s.Points[0].Y)
		for _, p := range s.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("stroke %s: %w", s.ID, err)
		}
	}

	return dc.EncodePNG(w)
}

// DecodeStrokes parses persisted stroke records, dropping any that do not
// decode as strokes (persisted payloads are client-supplied).
func DecodeStrokes(raw []json.RawMessage) []crdt.Stroke {
	out := make([]crdt.Stroke, 0, len(raw))
	for _, r := range raw {
		var s crdt.Stroke
		if err := json.Unmarshal(r, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
