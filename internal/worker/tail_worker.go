// Package worker handles state changes consumed back from the broker.
package worker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"card/internal/core"
	"card/internal/log"
)

// TailWorker prints one line per consumed state change.
type TailWorker struct {
	logger  *log.Logger
	mu      sync.Mutex
	out     io.Writer
	handled atomic.Int64
}

func NewTailWorker(out io.Writer, logger *log.Logger) *TailWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &TailWorker{
		out:    out,
		logger: logger.WithComponent(log.ComponentAMQP),
	}
}

// HandleStateChange writes msg. Unknown screens are logged and acknowledged
// so they are not redelivered forever.
func (w *TailWorker) HandleStateChange(ctx context.Context, msg *core.StateChanged) error {
	line, ok := describe(msg)
	if !ok {
		w.logger.WarnContext(ctx, "Skipping unknown state change", "id", msg.ID, log.FieldScreen, msg.Screen)
		return nil
	}

	w.mu.Lock()
	_, err := fmt.Fprintf(w.out, "%s %-7s %s\n", msg.OccurredAt.Format(time.RFC3339), msg.Screen, line)
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write state change: %w", err)
	}

	w.handled.Add(1)
	return nil
}

// Handled returns how many changes were written.
func (w *TailWorker) Handled() int64 {
	return w.handled.Load()
}

func describe(msg *core.StateChanged) (string, bool) {
	switch {
	case msg.Screen == core.ScreenSummary && msg.Summary != nil:
		if !msg.Summary.OK {
			return "failed: " + msg.Summary.Display, true
		}
		return msg.Summary.Display, true
	case msg.Screen == core.ScreenUsages && msg.Usages != nil:
		var cancelled int
		var total int64
		for _, u := range msg.Usages.Usages {
			if u.Cancelled() {
				cancelled++
				continue
			}
			total += u.Fee
		}
		line := fmt.Sprintf("%d records, %d cancelled, %s approved", msg.Usages.Count, cancelled, core.FormatWon(total))
		if msg.Usages.Error != "" {
			line += " (" + msg.Usages.Error + ")"
		}
		return line, true
	default:
		return "", false
	}
}
