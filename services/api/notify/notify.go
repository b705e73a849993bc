package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SaveEvent describes one accepted manual-input save.
type SaveEvent struct {
	BatchID      string    `json:"batch_id"`
	PerfID       int64     `json:"perf_id"`
	MInput       int       `json:"m_input"`
	BaseDateTime string    `json:"base_date_time"`
	Count        int       `json:"count"`
	SavedAt      time.Time `json:"saved_at"`
}

// LogNotifier writes save events to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, ev SaveEvent) error {
	n.logger.Info("manual input saved",
		zap.String("batch_id", ev.BatchID),
		zap.Int64("perf_id", ev.PerfID),
		zap.Int("m_input", ev.MInput),
		zap.String("base_date_time", ev.BaseDateTime),
		zap.Int("count", ev.Count),
	)
	return nil
}
