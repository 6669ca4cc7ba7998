package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/forensic-lab/internal/application"
	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
	"github.com/bryanwahyu/forensic-lab/internal/domain/submission"
)

// Gateway is the remote analysis endpoint.
type Gateway interface {
	Analyze(ctx context.Context, req analysis.Request) (submission.Result, error)
}

// Settings exposes the workspace values an analysis needs.
type Settings interface {
	Session(ctx context.Context) (access.Session, error)
	AssignmentContext(ctx context.Context) (string, error)
	Model(ctx context.Context) (string, error)
}

// Params is what every analysis in one pass shares.
type Params struct {
	Session access.Session
	Context string
	Model   string
}

// Runner drives single submissions through idle -> analyzing -> done|error.
type Runner struct {
	Store    submission.Store
	Settings Settings
	Gateway  Gateway
	Clock    application.Clock
	Log      *zap.Logger
}

// Params loads the session, context and model. An absent or expired session
// is a validation error so callers can refuse before touching any submission.
func (r *Runner) Params(ctx context.Context) (Params, error) {
	sess, err := r.Settings.Session(ctx)
	if err != nil {
		return Params{}, fmt.Errorf("load session: %w", err)
	}
	if !sess.ValidAt(r.clock().Now()) {
		return Params{}, failure.New(failure.Validation, failure.OperatorMessage(failure.SessionExpired))
	}
	assignment, err := r.Settings.AssignmentContext(ctx)
	if err != nil {
		return Params{}, fmt.Errorf("load context: %w", err)
	}
	model, err := r.Settings.Model(ctx)
	if err != nil {
		return Params{}, fmt.Errorf("load model: %w", err)
	}
	return Params{Session: sess, Context: assignment, Model: model}, nil
}

// Analyze runs one submission by id.
func (r *Runner) Analyze(ctx context.Context, id string) (*submission.Submission, error) {
	sub, err := r.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.HasContent() {
		return sub, failure.Wrap(failure.Validation, "Submission has no content", submission.ErrEmptyContent)
	}
	if !sub.Status.Pending() {
		return sub, failure.Wrap(failure.Validation, fmt.Sprintf("Submission is %s", sub.Status), submission.ErrInvalidTransition)
	}
	p, err := r.Params(ctx)
	if err != nil {
		return sub, err
	}
	return sub, r.Run(ctx, sub, p)
}

// Retry re-runs a submission that ended in error.
func (r *Runner) Retry(ctx context.Context, id string) (*submission.Submission, error) {
	sub, err := r.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != submission.StatusError {
		return sub, failure.Wrap(failure.Validation, "Only failed submissions can be retried", submission.ErrInvalidTransition)
	}
	return r.Analyze(ctx, id)
}

// Edit replaces label and content and resets the submission to idle.
func (r *Runner) Edit(ctx context.Context, id, label, content string) (*submission.Submission, error) {
	sub, err := r.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.Edit(label, content, r.clock().Now())
	if err := r.Store.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Run moves a loaded submission through one analysis and persists every
// transition. A gateway failure leaves the submission in error with the
// operator message and is returned; only store failures abort without that.
func (r *Runner) Run(ctx context.Context, sub *submission.Submission, p Params) error {
	if err := sub.BeginAnalysis(r.clock().Now()); err != nil {
		if errors.Is(err, submission.ErrEmptyContent) {
			return failure.Wrap(failure.Validation, "Submission has no content", err)
		}
		return failure.Wrap(failure.Validation, "", err)
	}
	if err := r.Store.Save(ctx, sub); err != nil {
		return err
	}

	res, callErr := r.Gateway.Analyze(ctx, analysis.Request{
		Token:   p.Session.Token,
		Text:    sub.Content,
		Context: p.Context,
		Model:   p.Model,
	})

	// simpan walaupun ctx sudah dibatalkan, supaya tidak nyangkut di analyzing
	saveCtx := context.WithoutCancel(ctx)
	now := r.clock().Now()
	if callErr != nil {
		r.log().Warn("analysis failed",
			zap.String("submission", sub.ID),
			zap.String("kind", string(failure.KindOf(callErr))),
			zap.Error(callErr),
		)
		if err := sub.Fail(failure.MessageOf(callErr), now); err != nil {
			return err
		}
		if err := r.Store.Save(saveCtx, sub); err != nil {
			return errors.Join(callErr, err)
		}
		return callErr
	}

	if err := sub.Complete(res, now); err != nil {
		return err
	}
	return r.Store.Save(saveCtx, sub)
}

func (r *Runner) clock() application.Clock { return application.OrSystem(r.Clock) }

func (r *Runner) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}
