package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/forensic-lab/internal/infra/workspace"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var pin string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange an access PIN for a session",
		Long:  "Exchange an access PIN for a session. Without --pin the PIN is read from the first line of stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(pin) == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read PIN: %w", err)
				}
				pin = strings.TrimSpace(line)
			}
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				sess, err := ctx.client().Login(cmd.Context(), pin)
				if err != nil {
					return present(err)
				}
				if err := ws.SaveSession(cmd.Context(), sess); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s. Session expires at %s.\n",
					stringOrDash(sess.Label), sess.ExpiresAt.Local().Format(time.Kitchen))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "Access PIN")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				if err := ws.ClearSession(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend, session and workspace status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				out := cmd.OutOrStdout()

				backend := "online"
				pingCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				if err := ctx.client().Health(pingCtx); err != nil {
					backend = "offline"
					ctx.log().Debug("health check failed", zap.Error(err))
				}
				cancel()

				sess, err := ws.Session(cmd.Context())
				if err != nil {
					return err
				}
				session := "logged out"
				switch {
				case sess.ValidAt(ctx.now()):
					session = fmt.Sprintf("%s (expires in %s)", stringOrDash(sess.Label),
						sess.ExpiresAt.Sub(ctx.now()).Round(time.Minute))
				case sess.Token != "":
					session = "expired"
				}

				model, err := ws.Model(cmd.Context())
				if err != nil {
					return err
				}
				assignment, err := ws.AssignmentContext(cmd.Context())
				if err != nil {
					return err
				}
				stats, err := ws.Stats(cmd.Context())
				if err != nil {
					return err
				}

				cfg, _ := ctx.ensureConfig()
				rows := [][]string{
					{"Backend", fmt.Sprintf("%s (%s)", backend, cfg.ServerURL)},
					{"Session", session},
					{"Model", model},
					{"Context", stringOrDash(truncate(assignment, 60))},
					{"Workspace", ws.Path()},
					{"Submissions", fmt.Sprintf("%d total, %d analyzed", stats.Total, stats.Analyzed)},
				}
				fmt.Fprintln(out, renderTable([]string{"Item", "Value"}, rows, nil, shouldStyle(out)))
				return nil
			})
		},
	}
}

func newModelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "model [name]",
		Short: "Show or select the scoring model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd.Context(), func(ws *workspace.Store) error {
				if len(args) == 1 {
					if err := ws.SetModel(cmd.Context(), args[0]); err != nil {
						return err
					}
				}
				model, err := ws.Model(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), model)
				return nil
			})
		},
	}
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	var showPath bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showPath {
				path := DefaultConfigPath()
				if ctx.configFlag != nil && strings.TrimSpace(*ctx.configFlag) != "" {
					path = *ctx.configFlag
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			text, err := cfg.Encode()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPath, "path", false, "Print the config file location instead")
	return cmd
}
