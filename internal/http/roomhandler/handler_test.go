package roomhandler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawboardgo/internal/ws"
)

func newRouter(hub *ws.Hub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	New(hub).Register(engine)
	return engine
}

func TestListRoomsEmptyBody(t *testing.T) {
	router := newRouter(ws.NewHub())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String(), "no rooms yet must still be a JSON array")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestListRoomsBody(t *testing.T) {
	hub := ws.NewHub()
	_, err := hub.Room("studio-123").Presence().ApplyUpdate([]byte(
		`[{"client":1,"clock":1,"state":{"name":"Alice","color":"#ff0000"}}]`), "origin")
	require.NoError(t, err)
	router := newRouter(hub)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`[{"name":"studio-123","peers":[{"id":1,"name":"Alice","color":"#ff0000"}]}]`,
		rec.Body.String())
}
