package batch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/forensic-lab/internal/application/lifecycle"
	"github.com/bryanwahyu/forensic-lab/internal/domain/submission"
)

// DefaultPacing is the gap between consecutive provider calls.
const DefaultPacing = 750 * time.Millisecond

// MinPacing is the smallest gap an operator may configure; the scoring
// provider rate-limits bursts.
const MinPacing = 500 * time.Millisecond

// ErrBatchRunning is returned when another run holds the workspace lock.
var ErrBatchRunning = errors.New("another analysis is running on this workspace")

// Locker guards a workspace against concurrent passes.
type Locker interface {
	TryLock() (unlock func(), ok bool, err error)
}

// Progress is reported after each item settles.
type Progress struct {
	Index      int
	Total      int
	Submission *submission.Submission
	Err        error
}

type Options struct {
	Pacing time.Duration
	// ShouldContinue is checked before each item. Nil means always.
	ShouldContinue func() bool
	OnProgress     func(Progress)
}

// Outcome counts what a pass did. NoOp is set when nothing was pending.
type Outcome struct {
	Selected  int
	Skipped   int
	Succeeded int
	Failed    int
	Stopped   bool
	NoOp      bool
}

// Orchestrator analyzes every pending submission one at a time.
type Orchestrator struct {
	Runner *lifecycle.Runner
	Lock   Locker
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	Log   *zap.Logger
}

// AnalyzeAll selects idle and errored submissions, newest first, and runs them
// strictly in sequence. Blank submissions are skipped and stay idle. A failure
// marks that item only; the pass goes on.
func (o *Orchestrator) AnalyzeAll(ctx context.Context, opts Options) (Outcome, error) {
	var out Outcome

	if o.Lock != nil {
		unlock, ok, err := o.Lock.TryLock()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, ErrBatchRunning
		}
		defer unlock()
	}

	subs, err := o.Runner.Store.List(ctx)
	if err != nil {
		return out, err
	}
	var pending []*submission.Submission
	for _, s := range subs {
		if s.Status.Pending() {
			pending = append(pending, s)
		}
	}
	out.Selected = len(pending)
	if len(pending) == 0 {
		out.NoOp = true
		return out, nil
	}

	params, err := o.Runner.Params(ctx)
	if err != nil {
		return out, err
	}

	pacing := opts.Pacing
	if pacing < 0 {
		pacing = 0
	}
	log := o.log()
	called := false

	for i, sub := range pending {
		if ctx.Err() != nil || (opts.ShouldContinue != nil && !opts.ShouldContinue()) {
			out.Stopped = true
			break
		}
		if !sub.HasContent() {
			out.Skipped++
			continue
		}
		if called && pacing > 0 {
			if err := o.sleep(ctx, pacing); err != nil {
				out.Stopped = true
				break
			}
		}
		called = true

		runErr := o.Runner.Run(ctx, sub, params)
		if runErr != nil {
			out.Failed++
			log.Warn("batch item failed", zap.String("submission", sub.ID), zap.Error(runErr))
		} else {
			out.Succeeded++
		}
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Index: i + 1, Total: len(pending), Submission: sub, Err: runErr})
		}
	}

	log.Info("batch pass finished",
		zap.Int("selected", out.Selected),
		zap.Int("succeeded", out.Succeeded),
		zap.Int("failed", out.Failed),
		zap.Int("skipped", out.Skipped),
		zap.Bool("stopped", out.Stopped),
	)
	return out, nil
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep != nil {
		return o.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) log() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}
