package board

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Upper bound on canvas dimensions, pixels. Stored sizes feed straight into
// the export rasterizer, so an unchecked value would turn one GET into an
// enormous allocation.
const MaxDimension = 8192

var (
	ErrNotFound    = errors.New("drawing not found")
	ErrInvalidSize = fmt.Errorf("width and height must be between 1 and %d", MaxDimension)
)

func validSize(w, h float64) bool {
	return w > 0 && h > 0 && w <= MaxDimension && h <= MaxDimension
}

type DrawingSize struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// DrawingDoc is the client-supplied document shape.
type DrawingDoc struct {
	Title      string            `json:"title"`
	Size       DrawingSize       `json:"size"`
	Background string            `json:"background"`
	Strokes    []json.RawMessage `json:"strokes"`
}

type DrawingSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DrawingDTO struct {
	ID         string            `json:"id"`
	Owner      string            `json:"owner"`
	Title      string            `json:"title"`
	Size       DrawingSize       `json:"size"`
	Background string            `json:"background"`
	Strokes    []json.RawMessage `json:"strokes"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DrawingPatch carries a partial update; nil fields are left untouched.
type DrawingPatch struct {
	Title      *string            `json:"title"`
	Size       *DrawingSize       `json:"size"`
	Background *string            `json:"background"`
	Strokes    *[]json.RawMessage `json:"strokes"`
}

type IBoardService interface {
	ListDrawings(ctx context.Context) ([]DrawingSummary, error)
	CreateDrawing(ctx context.Context, owner string, doc DrawingDoc) (string, error)
	GetDrawing(ctx context.Context, id string) (*DrawingDTO, error)
	UpdateDrawing(ctx context.Context, id string, patch DrawingPatch) error
	DeleteDrawing(ctx context.Context, id string) error
}

type boardService struct {
	db *sql.DB
}

func NewBoardService(db *sql.DB) IBoardService {
	return &boardService{db: db}
}

func (svc *boardService) ListDrawings(ctx context.Context) ([]DrawingSummary, error) {
	rows, err := svc.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at
		   FROM drawings
		  ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DrawingSummary{}
	for rows.Next() {
		var d DrawingSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (svc *boardService) CreateDrawing(ctx context.Context, owner string, doc DrawingDoc) (string, error) {
	if !validSize(doc.Size.W, doc.Size.H) {
		return "", ErrInvalidSize
	}
	strokes, err := marshalStrokes(doc.Strokes)
	if err != nil {
		return "", err
	}

	id := ulid.Make().String()
	_, err = svc.db.ExecContext(ctx,
		`INSERT INTO drawings (id, owner, title, width, height, background, strokes)
		      VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, owner, doc.Title, doc.Size.W, doc.Size.H, doc.Background, strokes)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (svc *boardService) GetDrawing(ctx context.Context, id string) (*DrawingDTO, error) {
	var (
		dto     DrawingDTO
		strokes []byte
	)
	err := svc.db.QueryRowContext(ctx,
		`SELECT id, owner, title, width, height, background, strokes, created_at, updated_at
		   FROM drawings WHERE id = $1`, id).
		Scan(&dto.ID, &dto.Owner, &dto.Title, &dto.Size.W, &dto.Size.H,
			&dto.Background, &strokes, &dto.CreatedAt, &dto.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(strokes, &dto.Strokes); err != nil {
		return nil, fmt.Errorf("decode strokes: %w", err)
	}
	return &dto, nil
}

func (svc *boardService) UpdateDrawing(ctx context.Context, id string, patch DrawingPatch) error {
	if patch.Size != nil && !validSize(patch.Size.W, patch.Size.H) {
		return ErrInvalidSize
	}

	var width, height *float64
	if patch.Size != nil {
		width, height = &patch.Size.W, &patch.Size.H
	}
	var strokes []byte
	if patch.Strokes != nil {
		raw, err := marshalStrokes(*patch.Strokes)
		if err != nil {
			return err
		}
		strokes = raw
	}

	res, err := svc.db.ExecContext(ctx,
		`UPDATE drawings
		    SET title      = COALESCE($2, title),
		        width      = COALESCE($3, width),
		        height     = COALESCE($4, height),
		        background = COALESCE($5, background),
		        strokes    = COALESCE($6, strokes),
		        updated_at = now()
		  WHERE id = $1`,
		id, patch.Title, width, height, patch.Background, strokes)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (svc *boardService) DeleteDrawing(ctx context.Context, id string) error {
	res, err := svc.db.ExecContext(ctx, `DELETE FROM drawings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalStrokes(strokes []json.RawMessage) ([]byte, error) {
	if strokes == nil {
		strokes = []json.RawMessage{}
	}
	raw, err := json.Marshal(strokes)
	if err != nil {
		return nil, fmt.Errorf("encode strokes: %w", err)
	}
	return raw, nil
}
