package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// subscriptionManager guarantees exactly one Redis subscription per
// "room:<name>:frames" channel, no matter how many local websocket clients
// are bound to that room.
type subscriptionManager struct {
	rdb  *redis.Client
	srv  *WsServer
	mu   sync.Mutex
	subs map[string]*subEntry // room name -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, srv *WsServer) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		srv:  srv,
		subs: make(map[string]*subEntry),
	}
}

// Subscribe ensures the process listens on the room's channel; subsequent
// calls for the same room only bump the ref-counter.
func (sm *subscriptionManager) Subscribe(roomName string) {
	sm.mu.Lock()
	if e, ok := sm.subs[roomName]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First consumer: create the Redis SUB and the fan-in loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, roomChannel(roomName))

	sm.subs[roomName] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok {
					return
				}
				var env frameEnvelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					zap.L().Warn("ws.fanout_envelope", zap.String("room", roomName), zap.Error(err))
					continue
				}
				if env.Src == sm.srv.instanceID {
					continue // our own publication
				}
				frame, err := base64.StdEncoding.DecodeString(env.Frame)
				if err != nil {
					zap.L().Warn("ws.fanout_frame", zap.String("room", roomName), zap.Error(err))
					continue
				}
				sm.srv.applyRemote(roomName, frame)
			}
		}
	}()
}

// Unsubscribe drops the ref-counter and tears the Redis SUB down when the
// last local client leaves the room.
func (sm *subscriptionManager) Unsubscribe(roomName string) {
	sm.mu.Lock()
	e, ok := sm.subs[roomName]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, roomName)
	sm.mu.Unlock()

	// Outside the lock: stop the fan-in goroutine.
	e.cancel()
}
