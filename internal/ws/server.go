package ws

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"drawboardgo/internal/crdt"
	"drawboardgo/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WsServer binds realtime connections to rooms and relays their frames.
type WsServer struct {
	hub        *Hub
	subMgr     *subscriptionManager
	rdc        *redis.Client
	instanceID string
	nextConnID atomic.Uint64
}

// NewWsServer wires the relay. rdc may be nil; fan-out and the update
// journal are then disabled (single-instance mode).
func NewWsServer(h *Hub, rdc *redis.Client) *WsServer {
	srv := &WsServer{
		hub:        h,
		rdc:        rdc,
		instanceID: ulid.Make().String(),
	}
	if rdc != nil {
		srv.subMgr = newSubscriptionManager(rdc, srv)
	}
	return srv
}

// Handle upgrades a realtime connection. The room name comes from the path
// remainder, falling back to the ?room query parameter, then "default".
// Requests outside the /ws prefix never reach here; the router rejects them
// before any upgrade happens.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	roomName := strings.Trim(ginCtx.Param("room"), "/")
	if roomName == "" {
		roomName = ginCtx.Query("room")
	}
	if roomName == "" {
		roomName = "default"
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}

	conn := &clientConn{id: s.nextConnID.Add(1), rawConn: rawConn}
	room := s.hub.Room(roomName)
	room.add(conn)
	if s.subMgr != nil {
		s.subMgr.Subscribe(roomName)
	}
	zap.L().Debug("ws.join",
		zap.String("room", roomName),
		zap.Uint64("conn", conn.id),
		zap.Int("total", room.size()),
	)

	// Reconcile the newcomer before anything else: ask for its missing
	// state, then hand it the full presence picture.
	if err := conn.write(protocol.EncodeSync(protocol.SyncStep1, room.Doc().EncodeStateVector())); err != nil {
		s.teardown(room, conn)
		return
	}
	if err := conn.write(protocol.EncodeAwareness(room.Presence().EncodeAll())); err != nil {
		s.teardown(room, conn)
		return
	}

	go s.pinger(conn)
	go s.reader(room, conn)
}

func (s *WsServer) reader(room *Room, conn *clientConn) {
	defer s.teardown(room, conn)

	conn.rawConn.SetReadLimit(maxMessageSize)
	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, frame, err := conn.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				zap.L().Warn("ws.read", zap.Uint64("conn", conn.id), zap.Error(err))
			}
			return
		}
		if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
			continue
		}
		s.dispatch(room, conn, frame)
	}
}

// teardown runs exactly once per connection: membership, presence entries
// and the fan-out refcount all go, and the remaining participants learn
// about the departure. Nothing applied earlier is rolled back.
func (s *WsServer) teardown(room *Room, conn *clientConn) {
	room.remove(conn)
	conn.close()
	if s.subMgr != nil {
		s.subMgr.Unsubscribe(room.Name)
	}

	change := room.Presence().RemoveByOrigin(conn)
	if !change.Empty() {
		frame := protocol.EncodeAwareness(room.Presence().EncodeIDs(change.IDs()))
		room.broadcast(frame, nil)
		s.publish(room.Name, frame)
	}
	zap.L().Debug("ws.leave",
		zap.String("room", room.Name),
		zap.Uint64("conn", conn.id),
		zap.Int("total", room.size()),
	)
}

// dispatch demultiplexes one inbound frame by its kind tag. Unknown kinds
// and corrupt payloads cost only that frame, never the connection.
func (s *WsServer) dispatch(room *Room, conn *clientConn, frame []byte) {
	kind, body, err := protocol.DecodeFrame(frame)
	if err != nil {
		zap.L().Warn("ws.frame", zap.Uint64("conn", conn.id), zap.Error(err))
		return
	}
	switch kind {
	case protocol.MessageSync:
		s.handleSync(room, conn, body)
	case protocol.MessageAwareness:
		s.handleAwareness(room, conn, body)
	default:
		zap.L().Debug("ws.unknown_kind", zap.Uint64("kind", kind), zap.Uint64("conn", conn.id))
	}
}

func (s *WsServer) handleSync(room *Room, conn *clientConn, body []byte) {
	step, payload, err := protocol.DecodeSync(body)
	if err != nil {
		zap.L().Warn("ws.sync_frame", zap.Uint64("conn", conn.id), zap.Error(err))
		return
	}

	switch step {
	case protocol.SyncStep1:
		// Point-to-point reconciliation: the diff goes back to the
		// requester only, never to the rest of the room.
		sv, err := crdt.DecodeStateVector(payload)
		if err != nil {
			zap.L().Warn("ws.state_vector", zap.Uint64("conn", conn.id), zap.Error(err))
			return
		}
		if err := conn.write(protocol.EncodeSync(protocol.SyncStep2, room.Doc().DiffUpdate(sv))); err != nil {
			zap.L().Warn("ws.sync_reply", zap.Uint64("conn", conn.id), zap.Error(err))
		}

	case protocol.SyncStep2, protocol.SyncUpdate:
		applied, err := room.Doc().ApplyUpdate(payload)
		if err != nil {
			zap.L().Warn("ws.apply_update", zap.Uint64("conn", conn.id), zap.Error(err))
			return
		}
		if applied == 0 {
			return
		}
		// The document engine has no propagation of its own, so the relay
		// re-broadcasts every newly applied update to the rest of the room.
		frame := protocol.EncodeSync(protocol.SyncUpdate, payload)
		room.broadcast(frame, conn)
		s.publish(room.Name, frame)
		s.journal(room.Name, conn.id, payload)
	}
}

func (s *WsServer) handleAwareness(room *Room, conn *clientConn, body []byte) {
	change, err := room.Presence().ApplyUpdate(body, conn)
	if err != nil {
		zap.L().Warn("ws.awareness", zap.Uint64("conn", conn.id), zap.Error(err))
		return
	}
	if change.Empty() {
		return
	}
	frame := protocol.EncodeAwareness(room.Presence().EncodeIDs(change.IDs()))
	room.broadcast(frame, conn)
	s.publish(room.Name, frame)
}

// applyRemote folds a frame relayed from another instance into local room
// state, then delivers it to every local connection. No local connection is
// the origin, so nobody is excluded.
func (s *WsServer) applyRemote(roomName string, frame []byte) {
	room := s.hub.Room(roomName)

	kind, body, err := protocol.DecodeFrame(frame)
	if err != nil {
		zap.L().Warn("ws.remote_frame", zap.String("room", roomName), zap.Error(err))
		return
	}
	switch kind {
	case protocol.MessageSync:
		step, payload, err := protocol.DecodeSync(body)
		if err != nil || step == protocol.SyncStep1 {
			return
		}
		if _, err := room.Doc().ApplyUpdate(payload); err != nil {
			zap.L().Warn("ws.remote_update", zap.String("room", roomName), zap.Error(err))
			return
		}
	case protocol.MessageAwareness:
		if _, err := room.Presence().ApplyUpdate(body, "instance:"+s.instanceID); err != nil {
			zap.L().Warn("ws.remote_awareness", zap.String("room", roomName), zap.Error(err))
			return
		}
	default:
		return
	}
	room.broadcast(frame, nil)
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.ping(); err != nil {
			conn.close()
			return
		}
	}
}
