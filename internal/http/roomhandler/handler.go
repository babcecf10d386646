package roomhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drawboardgo/internal/ws"
)

type Handler struct {
	hub *ws.Hub
}

func New(hub *ws.Hub) *Handler { return &Handler{hub: hub} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/rooms", h.list)
}

// @Summary		List active rooms
// @Description	Current named participants per room. Always computed live;
// @Description	callers poll this endpoint.
// @Tags			Rooms
// @Success		200	{array}	ws.RoomInfo
// @Router			/rooms [get]
func (h *Handler) list(ginCtx *gin.Context) {
	ginCtx.Header("Cache-Control", "no-store")
	ginCtx.JSON(http.StatusOK, h.hub.ListRooms())
}
