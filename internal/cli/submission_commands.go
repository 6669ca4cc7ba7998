package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/forensic-lab/internal/domain/submission"
	"github.com/bryanwahyu/forensic-lab/internal/infra/workspace"
)

// readContent picks --text, then --file ("-" is stdin).
func readContent(cmd *cobra.Command, textFlag, fileFlag string) (string, bool, error) {
	if cmd.Flags().Changed("text") {
		return textFlag, true, nil
	}
	if fileFlag == "" {
		return "", false, nil
	}
	var (
		b   []byte
		err error
	)
	if fileFlag == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(fileFlag)
	}
	if err != nil {
		return "", false, fmt.Errorf("read content: %w", err)
	}
	return string(b), true, nil
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var label, textFlag, fileFlag string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a submission to the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, _, err := readContent(cmd, textFlag, fileFlag)
			if err != nil {
				return err
			}
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				now := ctx.now()
				sub := submission.New(uuid.NewString(), now)
				sub.Edit(label, content, now)
				if err := ws.Save(cmd.Context(), sub); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", shortID(sub.ID), sub.StudentLabel)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "Student label")
	cmd.Flags().StringVarP(&textFlag, "text", "t", "", "Submission text")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read submission text from a file, - for stdin")
	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var label, textFlag, fileFlag string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a submission's label or text and reset it to idle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, changed, err := readContent(cmd, textFlag, fileFlag)
			if err != nil {
				return err
			}
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				id, err := resolveID(cmd.Context(), ws, args[0])
				if err != nil {
					return err
				}
				cur, err := ws.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("label") {
					label = cur.StudentLabel
				}
				if !changed {
					content = cur.Content
				}
				sub, err := ctx.runner(ws).Edit(cmd.Context(), id, label, content)
				if err != nil {
					return present(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", shortID(sub.ID), sub.StudentLabel)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "Student label")
	cmd.Flags().StringVarP(&textFlag, "text", "t", "", "Submission text")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read submission text from a file, - for stdin")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a submission",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				id, err := resolveID(cmd.Context(), ws, args[0])
				if err != nil {
					return err
				}
				if err := ws.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", shortID(id))
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List submissions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				subs, err := ws.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				st := submission.Summarize(subs)
				fmt.Fprintf(out, "Total %d  Analyzed %d  Avg score %d%%\n", st.Total, st.Analyzed, st.AverageScore)
				if len(subs) == 0 {
					fmt.Fprintln(out, "No submissions. Add one with `forensics add`.")
					return nil
				}

				rows := make([][]string, 0, len(subs))
				for _, s := range subs {
					score, verdict := "-", "-"
					if s.Status == submission.StatusDone && s.Result != nil {
						score = strconv.Itoa(s.Result.AIScore)
						verdict = s.Result.Verdict()
						if s.Result.IsDuplicate {
							verdict += " (duplicate)"
						}
					}
					if s.Status == submission.StatusError {
						verdict = truncate(s.ErrorMessage, 40)
					}
					rows = append(rows, []string{
						shortID(s.ID),
						s.StudentLabel,
						string(s.Status),
						score,
						verdict,
						s.LastUpdated.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Student", "Status", "Score", "Verdict", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
					shouldStyle(out),
				))
				return nil
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one submission with its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				id, err := resolveID(cmd.Context(), ws, args[0])
				if err != nil {
					return err
				}
				s, err := ws.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:       %s\n", s.ID)
				fmt.Fprintf(out, "Student:  %s\n", s.StudentLabel)
				fmt.Fprintf(out, "Status:   %s\n", s.Status)
				if s.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:    %s\n", s.ErrorMessage)
				}
				if r := s.Result; r != nil {
					fmt.Fprintf(out, "Score:    %d%% %s\n", r.AIScore, r.Verdict())
					if r.IsDuplicate {
						fmt.Fprintln(out, "Duplicate: this exact text was analyzed before")
					}
					fmt.Fprintf(out, "Model:    %s\n", stringOrDash(r.ModelUsed))
					fmt.Fprintf(out, "Analyzed: %s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"))
					fmt.Fprintf(out, "\n%s\n", r.Reasoning)
				}
				if s.HasContent() {
					fmt.Fprintf(out, "\n---\n%s\n", strings.TrimRight(s.Content, "\n"))
				}
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every submission and the assignment context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("clear removes every submission; pass --yes to confirm")
			}
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				if err := ws.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Workspace cleared.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm")
	return cmd
}

func newContextCommand(ctx *commandContext) *cobra.Command {
	var clearFlag bool
	cmd := &cobra.Command{
		Use:   "context [text]",
		Short: "Show or set the assignment context sent with every analysis",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				switch {
				case clearFlag:
					if err := ws.SetAssignmentContext(cmd.Context(), ""); err != nil {
						return err
					}
				case len(args) == 1:
					if err := ws.SetAssignmentContext(cmd.Context(), args[0]); err != nil {
						return err
					}
				}
				v, err := ws.AssignmentContext(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), stringOrDash(v))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearFlag, "clear", false, "Remove the stored context")
	return cmd
}
