package syncupdates

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stream = "doc_updates_stream"

// Run tails the Redis update stream and journals every applied document
// update into Postgres.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB) {
	go func() {
		lastID := "0-0"
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// block up to 2 s for new entries
			res, err := rdc.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   100,
				Block:   2000 * time.Millisecond,
			}).Result()
			if err != nil && err != redis.Nil {
				zap.L().Warn("syncupdates.xread", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(res) == 0 {
				continue
			}
			entries := res[0].Messages
			if err := persist(ctx, db, entries); err != nil {
				zap.L().Warn("syncupdates.persist", zap.Error(err))
			}
			lastID = entries[len(entries)-1].ID
		}
	}()
}

func persist(ctx context.Context, db *sql.DB, msgs []redis.XMessage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Keyed by the stream message id: the tailer restarts from "0-0" on
	// every boot, so replayed entries must land on the unique constraint
	// instead of piling up as duplicate rows.
	const ins = `INSERT INTO doc_updates (stream_id, room, conn_id, payload, received_at)
	             VALUES ($1, $2, $3, $4, to_timestamp($5))
	             ON CONFLICT (stream_id) DO NOTHING`
	for _, m := range msgs {
		room, _ := m.Values["room"].(string)
		payload, _ := m.Values["payload"].(string)
		connStr, _ := m.Values["conn"].(string)
		atStr, _ := m.Values["at"].(string)
		if room == "" || payload == "" {
			continue
		}
		connID, _ := strconv.ParseInt(connStr, 10, 64)
		at, _ := strconv.ParseInt(atStr, 10, 64)
		if at == 0 {
			at = time.Now().Unix()
		}
		if _, err := tx.ExecContext(ctx, ins, m.ID, room, connID, payload, at); err != nil {
			return err
		}
	}
	return tx.Commit()
}
