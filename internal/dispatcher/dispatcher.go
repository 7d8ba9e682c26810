package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/applynow/internal/filter"
	"github.com/amishk599/applynow/internal/model"
	"github.com/amishk599/applynow/internal/notifier"
)

// TickResult summarizes one dispatch tick.
type TickResult struct {
	Pending int
	Handled int
	Sent    int
	Failed  int
	// Contended is true when another dispatcher held the lease.
	Contended bool
}

// Dispatcher drains the notification queue and fans new jobs out to
// matching subscribers.
type Dispatcher struct {
	store    model.StoreTx
	notifier model.Notifier
	lease    model.Lease
	interval time.Duration
	logger   *slog.Logger
}

// New creates a dispatcher that ticks every interval. Every tick runs under lease.
func New(store model.StoreTx, n model.Notifier, lease model.Lease, interval time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		notifier: n,
		lease:    lease,
		interval: interval,
		logger:   logger,
	}
}

// Run ticks until ctx is cancelled and returns nil on shutdown. A failed tick
// is logged and the loop continues.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("starting dispatcher", "interval", d.interval.String())

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				d.logger.Warn("dispatch tick interrupted by shutdown", "error", err)
			} else {
				d.logger.Error("dispatch tick failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			d.logger.Info("shutting down dispatcher")
			return nil
		case <-ticker.C:
		}
	}
}

// markTimeout bounds the final MarkSent, which runs even after ctx is done.
const markTimeout = 10 * time.Second

// Tick runs one drain-and-notify cycle. Every pending event is handled at
// most once: send failures are logged per recipient and the event is still
// marked sent at the end of the tick. If ctx is cancelled or the lease is
// lost mid-tick no further sends start, and every job whose delivery began
// is still marked sent.
func (d *Dispatcher) Tick(ctx context.Context) (TickResult, error) {
	held, release, ok, err := d.lease.Acquire(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("acquiring dispatch lease: %w", err)
	}
	if !ok {
		d.logger.Debug("dispatch lease held elsewhere, skipping tick")
		return TickResult{Contended: true}, nil
	}
	defer release()

	events, err := d.store.Pending(held)
	if err != nil {
		return TickResult{}, err
	}
	res := TickResult{Pending: len(events)}
	if len(events) == 0 {
		return res, nil
	}

	filters, err := d.store.ActiveAlertFilters(held)
	if err != nil {
		return res, err
	}

	var (
		handled  []string
		seen     = make(map[string]bool, len(events))
		loadErrs []error
	)
	for _, ev := range events {
		if held.Err() != nil {
			break
		}
		if seen[ev.JobID] {
			continue
		}

		job, err := d.store.JobByID(held, ev.JobID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			// The row is gone; mark the event handled so it cannot block the queue.
			d.logger.Warn("pending event for unknown job", "job_id", ev.JobID, "event_id", ev.ID)
		case err != nil:
			if held.Err() != nil {
				continue
			}
			loadErrs = append(loadErrs, err)
			continue
		default:
			sent, failed := d.deliver(held, job, filters)
			res.Sent += sent
			res.Failed += failed
		}

		seen[ev.JobID] = true
		handled = append(handled, ev.JobID)
	}

	var interrupted error
	if held.Err() != nil {
		interrupted = fmt.Errorf("dispatch tick interrupted: %w", context.Cause(held))
	}

	if len(handled) > 0 {
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
		err := d.store.MarkSent(markCtx, handled)
		cancel()
		if err != nil {
			return res, errors.Join(append(loadErrs, interrupted, err)...)
		}
	}
	res.Handled = len(handled)

	d.logger.Info("dispatch tick complete",
		"pending", res.Pending,
		"handled", res.Handled,
		"sent", res.Sent,
		"failed", res.Failed,
		"subscribers", len(filters),
		"interrupted", interrupted != nil,
	)
	return res, errors.Join(append(loadErrs, interrupted)...)
}

// deliver sends job to every matching subscriber. It stops starting sends
// once ctx is done.
func (d *Dispatcher) deliver(ctx context.Context, job *model.Job, filters []model.AlertFilter) (sent, failed int) {
	var text string
	for i := range filters {
		if ctx.Err() != nil {
			return sent, failed
		}
		f := &filters[i]
		if !filter.Matches(job, f) {
			continue
		}
		if text == "" {
			text = notifier.FormatJobAlert(job)
		}
		if err := d.notifier.Send(ctx, f.UserID, text); err != nil {
			d.logger.Error("sending alert failed",
				"user_id", f.UserID,
				"job_id", job.ID,
				"company", job.Company,
				"error", err,
			)
			failed++
			continue
		}
		d.logger.Debug("sent alert", "user_id", f.UserID, "job_id", job.ID)
		sent++
	}
	return sent, failed
}
