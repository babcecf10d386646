package boardhandler

import (
	"encoding/json"

	"drawboardgo/internal/services/board"
)

type SizeBody struct {
	W float64 `json:"w" binding:"required,gt=0,lte=8192" example:"1280"`
	H float64 `json:"h" binding:"required,gt=0,lte=8192" example:"720"`
} // @name SizeBody

type CreateDrawingBody struct {
	Title      string            `json:"title"      binding:"required,max=200" example:"sketch"`
	Size       SizeBody          `json:"size"       binding:"required"`
	Background string            `json:"background" binding:"required" example:"#ffffff"`
	Strokes    []json.RawMessage `json:"strokes"`
} // @name CreateDrawingRequest

type UpdateDrawingBody struct {
	Title      *string            `json:"title"      binding:"omitempty,max=200"`
	Size       *SizeBody          `json:"size"`
	Background *string            `json:"background"`
	Strokes    *[]json.RawMessage `json:"strokes"`
} // @name UpdateDrawingRequest

type CreatedResponse struct {
	ID string `json:"id"`
} // @name CreatedResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

func (b CreateDrawingBody) toDoc() board.DrawingDoc {
	return board.DrawingDoc{
		Title:      b.Title,
		Size:       board.DrawingSize{W: b.Size.W, H: b.Size.H},
		Background: b.Background,
		Strokes:    b.Strokes,
	}
}

func (b UpdateDrawingBody) toPatch() board.DrawingPatch {
	patch := board.DrawingPatch{
		Title:      b.Title,
		Background: b.Background,
		Strokes:    b.Strokes,
	}
	if b.Size != nil {
		patch.Size = &board.DrawingSize{W: b.Size.W, H: b.Size.H}
	}
	return patch
}
