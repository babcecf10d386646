package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const journalStream = "doc_updates_stream"

// frameEnvelope is the pub/sub wire form of one relayed frame. Frames are
// binary, so they travel base64-encoded; Src lets an instance skip its own
// publications.
type frameEnvelope struct {
	Src   string `json:"src"`
	Frame string `json:"frame"`
}

// publish fans a frame out to every other instance serving the same room.
// No-op without Redis.
func (s *WsServer) publish(roomName string, frame []byte) {
	if s.rdc == nil {
		return
	}
	raw, err := json.Marshal(frameEnvelope{
		Src:   s.instanceID,
		Frame: base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := s.rdc.Publish(ctx, roomChannel(roomName), raw).Err(); err != nil {
		zap.L().Warn("ws.publish", zap.String("room", roomName), zap.Error(err))
	}
}

// journal appends an applied document update to the Redis stream tailed by
// the persistence mirror. No-op without Redis.
func (s *WsServer) journal(roomName string, connID uint64, payload []byte) {
	if s.rdc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	err := s.rdc.XAdd(ctx, &redis.XAddArgs{
		Stream: journalStream,
		Values: map[string]any{
			"room":    roomName,
			"conn":    connID,
			"payload": string(payload),
			"at":      time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		zap.L().Warn("ws.journal", zap.String("room", roomName), zap.Error(err))
	}
}

func roomChannel(roomName string) string { return "room:" + roomName + ":frames" }
