package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/forensic-lab/internal/application/batch"
	"github.com/bryanwahyu/forensic-lab/internal/domain/submission"
	"github.com/bryanwahyu/forensic-lab/internal/infra/workspace"
)

func printOutcome(w io.Writer, s *submission.Submission) {
	switch {
	case s.Status == submission.StatusDone && s.Result != nil:
		dup := ""
		if s.Result.IsDuplicate {
			dup = ", duplicate"
		}
		fmt.Fprintf(w, "%s %s: %d%% %s%s\n", shortID(s.ID), s.StudentLabel, s.Result.AIScore, s.Result.Verdict(), dup)
	case s.Status == submission.StatusError:
		fmt.Fprintf(w, "%s %s: error: %s\n", shortID(s.ID), s.StudentLabel, s.ErrorMessage)
	default:
		fmt.Fprintf(w, "%s %s: %s\n", shortID(s.ID), s.StudentLabel, s.Status)
	}
}

// settled reports whether a run actually moved sub, as opposed to a refusal.
func settled(sub *submission.Submission, err error) bool {
	return sub != nil && (err == nil || sub.Status == submission.StatusError)
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Analyze one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				id, err := resolveID(cmd.Context(), ws, args[0])
				if err != nil {
					return err
				}
				return exclusive(ws, func() error {
					sub, err := ctx.runner(ws).Analyze(cmd.Context(), id)
					if settled(sub, err) {
						printOutcome(cmd.OutOrStdout(), sub)
					}
					return present(err)
				})
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Re-run a failed submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				id, err := resolveID(cmd.Context(), ws, args[0])
				if err != nil {
					return err
				}
				return exclusive(ws, func() error {
					sub, err := ctx.runner(ws).Retry(cmd.Context(), id)
					if settled(sub, err) {
						printOutcome(cmd.OutOrStdout(), sub)
					}
					return present(err)
				})
			})
		},
	}
}

func newAnalyzeAllCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "analyze-all",
		Short: "Analyze every idle or failed submission, one at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pacing := cfg.Pacing.Duration
			if cmd.Flags().Changed("pacing") {
				pacing, _ = cmd.Flags().GetDuration("pacing")
				if err := checkPacing(pacing); err != nil {
					return err
				}
			}

			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				out := cmd.OutOrStdout()
				calls := 0
				opts := batch.Options{
					Pacing: pacing,
					OnProgress: func(p batch.Progress) {
						calls++
						fmt.Fprintf(out, "[%d/%d] ", p.Index, p.Total)
						printOutcome(out, p.Submission)
					},
				}
				if limit > 0 {
					opts.ShouldContinue = func() bool { return calls < limit }
				}

				res, err := ctx.orchestrator(ws).AnalyzeAll(cmd.Context(), opts)
				if errors.Is(err, batch.ErrBatchRunning) {
					return err
				}
				if err != nil {
					return present(err)
				}
				if res.NoOp {
					fmt.Fprintln(out, "Nothing to analyze.")
					return nil
				}
				fmt.Fprintf(out, "Analyzed %d, failed %d, skipped %d empty", res.Succeeded, res.Failed, res.Skipped)
				if res.Stopped {
					fmt.Fprint(out, ", stopped early")
				}
				fmt.Fprintln(out, ".")
				return nil
			})
		},
	}
	cmd.Flags().Duration("pacing", 0, "Delay between provider calls, at least 500ms (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many analyses")
	return cmd
}
