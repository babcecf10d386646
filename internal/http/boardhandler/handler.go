package boardhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drawboardgo/internal/export"
	"drawboardgo/internal/services/board"
)

type Handler struct {
	svc board.IBoardService
}

func New(svc board.IBoardService) *Handler { return &Handler{svc: svc} }

// Register mounts the drawing CRUD. Mutating routes go behind authed.
func (h *Handler) Register(r gin.IRoutes, authed gin.IRoutes) {
	r.GET("/drawings", h.list)
	r.GET("/drawings/:id", h.get)
	r.GET("/drawings/:id/export.png", h.exportPNG)
	authed.POST("/drawings", h.create)
	authed.PATCH("/drawings/:id", h.update)
	authed.DELETE("/drawings/:id", h.remove)
}

// @Summary		List drawings
// @Description	Returns id/title/timestamps for every stored drawing.
// @Tags			Drawings
// @Success		200	{array}		board.DrawingSummary
// @Failure		500	{object}	ErrorResponse
// @Router			/drawings [get]
func (h *Handler) list(ginCtx *gin.Context) {
	out, err := h.svc.ListDrawings(ginCtx.Request.Context())
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

// @Summary		Get a drawing
// @Tags			Drawings
// @Param			id	path		string	true	"Drawing ID"
// @Success		200	{object}	board.DrawingDTO
// @Failure		404	{object}	ErrorResponse
// @Router			/drawings/{id} [get]
func (h *Handler) get(ginCtx *gin.Context) {
	dto, err := h.svc.GetDrawing(ginCtx.Request.Context(), ginCtx.Param("id"))
	if errors.Is(err, board.ErrNotFound) {
		ginCtx.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, dto)
}

// @Summary		Create a drawing
// @Description	Stores a new drawing document owned by the caller.
// @Tags			Drawings
// @Param			body	body		CreateDrawingBody	true	"Drawing document"
// @Success		201		{object}	CreatedResponse
// @Failure		400		{object}	ErrorResponse
// @Router			/drawings [post]
func (h *Handler) create(ginCtx *gin.Context) {
	var body CreateDrawingBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	id, err := h.svc.CreateDrawing(ginCtx.Request.Context(), ginCtx.GetString("username"), body.toDoc())
	if errors.Is(err, board.ErrInvalidSize) {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

// @Summary		Update a drawing
// @Description	Applies a partial update; omitted fields keep their value.
// @Tags			Drawings
// @Param			id		path	string				true	"Drawing ID"
// @Param			body	body	UpdateDrawingBody	true	"Partial document"
// @Success		204
// @Failure		404	{object}	ErrorResponse
// @Router			/drawings/{id} [patch]
func (h *Handler) update(ginCtx *gin.Context) {
	var body UpdateDrawingBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	err := h.svc.UpdateDrawing(ginCtx.Request.Context(), ginCtx.Param("id"), body.toPatch())
	switch {
	case errors.Is(err, board.ErrNotFound):
		ginCtx.JSON(http.StatusNotFound, &ErrorResponse{Error: err.Error()})
	case errors.Is(err, board.ErrInvalidSize):
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
	case err != nil:
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
	default:
		ginCtx.Status(http.StatusNoContent)
	}
}

// @Summary		Delete a drawing
// @Tags			Drawings
// @Param			id	path	string	true	"Drawing ID"
// @Success		204
// @Failure		404	{object}	ErrorResponse
// @Router			/drawings/{id} [delete]
func (h *Handler) remove(ginCtx *gin.Context) {
	err := h.svc.DeleteDrawing(ginCtx.Request.Context(), ginCtx.Param("id"))
	if errors.Is(err, board.ErrNotFound) {
		ginCtx.JSON(http.StatusNotFound, &ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.Status(http.StatusNoContent)
}

// @Summary		Export a drawing as PNG
// @Description	Rasterizes the stored strokes onto the drawing's canvas.
// @Tags			Drawings
// @Param			id	path	string	true	"Drawing ID"
// @Success		200
// @Failure		404	{object}	ErrorResponse
// @Router			/drawings/{id}/export.png [get]
func (h *Handler) exportPNG(ginCtx *gin.Context) {
	dto, err := h.svc.GetDrawing(ginCtx.Request.Context(), ginCtx.Param("id"))
	if errors.Is(err, board.ErrNotFound) {
		ginCtx.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	ginCtx.Header("Content-Type", "image/png")
	strokes := export.DecodeStrokes(dto.Strokes)
	if err := export.RenderPNG(ginCtx.Writer, dto.Size.W, dto.Size.H, dto.Background, strokes); err != nil {
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
