package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
)

// RoomLister is the read side the snapshot needs.
type RoomLister interface {
	ListActiveRooms(ctx context.Context) ([]rooms.RoomView, error)
}

// ObjectWriter stores a finished snapshot.
type ObjectWriter interface {
	PutJSON(ctx context.Context, name string, body []byte) error
}

type RoomSnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Rooms       []rooms.RoomView `json:"rooms"`
}

// SnapshotExporter periodically uploads the active room list.
type SnapshotExporter struct {
	lister   RoomLister
	writer   ObjectWriter
	interval time.Duration
	now      func() time.Time
}

func NewSnapshotExporter(lister RoomLister, writer ObjectWriter, interval time.Duration) *SnapshotExporter {
	return &SnapshotExporter{lister: lister, writer: writer, interval: interval, now: time.Now}
}

// Export writes one snapshot as latest.json and as a timestamped copy.
func (e *SnapshotExporter) Export(ctx context.Context) error {
	views, err := e.lister.ListActiveRooms(ctx)
	if err != nil {
		return err
	}
	now := e.now().UTC()
	body, err := json.Marshal(RoomSnapshot{GeneratedAt: now, Count: len(views), Rooms: views})
	if err != nil {
		return err
	}
	if err := e.writer.PutJSON(ctx, "rooms/latest.json", body); err != nil {
		return err
	}
	return e.writer.PutJSON(ctx, "rooms/"+now.Format("2006-01-02T15-04-05Z")+".json", body)
}

// Run exports on every tick until ctx is done.
func (e *SnapshotExporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			exportCtx, cancel := context.WithTimeout(ctx, e.interval)
			err := e.Export(exportCtx)
			cancel()
			if err != nil {
				slog.Error("Room snapshot failed",
					slog.String("type", "error"),
					slog.Any("error", err))
				continue
			}
			slog.Debug("Room snapshot uploaded",
				slog.String("type", "sys"),
				slog.Duration("took", time.Since(start)))
		}
	}
}
