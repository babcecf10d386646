package syncdoc

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"drawboardgo/internal/ws"
)

// Run mirrors every live room's merged stroke content into Postgres on a
// fixed interval. Rooms are not restored from these rows on boot; the
// registry is process-lifetime state and the mirror exists for operators
// and offline consumers.
func Run(ctx context.Context, hub *ws.Hub, db *sql.DB, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				syncOnce(ctx, hub, db)
			}
		}
	}()
}

func syncOnce(ctx context.Context, hub *ws.Hub, db *sql.DB) {
	snapshot := hub.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	const upsert = `
	INSERT INTO room_snapshots (room, strokes, updated_at)
	     VALUES ($1, $2, now())
	ON CONFLICT (room) DO UPDATE
	       SET strokes=EXCLUDED.strokes,
	           updated_at=EXCLUDED.updated_at`

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		zap.L().Error("syncdoc.tx_begin", zap.Error(err))
		return
	}
	defer tx.Rollback()

	for room, strokes := range snapshot {
		raw, err := json.Marshal(strokes)
		if err != nil {
			zap.L().Error("syncdoc.encode", zap.String("room", room), zap.Error(err))
			continue
		}
		if _, err := tx.ExecContext(ctx, upsert, room, raw); err != nil {
			zap.L().Error("syncdoc.upsert", zap.String("room", room), zap.Error(err))
		}
	}
	if err := tx.Commit(); err != nil {
		zap.L().Error("syncdoc.commit", zap.Error(err))
	}
}
