package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-merit/internal/console"
	"github.com/noah-isme/sma-merit/internal/controller"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive console: log in, add points, browse and maintain the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			renderer := console.NewRenderer(cmd.OutOrStdout())
			s, err := a.open(ctx, renderer)
			if err != nil {
				return err
			}
			defer s.close()

			in := bufio.NewReader(cmd.InOrStdin())
			if a.password != "" {
				_ = s.ctl.Dispatch(ctx, controller.Login{Password: a.password})
			}
			return runShell(ctx, cmd, in, renderer, s.ctl)
		},
	}
}

func runShell(ctx context.Context, cmd *cobra.Command, in *bufio.Reader, renderer *console.Renderer, ctl *controller.Controller) error {
	out := cmd.OutOrStdout()
	renderer.Render(ctl.State())
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		if strings.TrimSpace(line) == "help" {
			fmt.Fprintln(out, console.Help)
			continue
		}

		next, perr := console.Parse(line, ctl.State())
		switch {
		case errors.Is(perr, console.ErrQuit):
			return nil
		case errors.Is(perr, console.ErrNeedsSecret):
			if err := runSecretCommand(ctx, cmd, in, ctl, strings.Fields(line)[0]); err != nil {
				return err
			}
		case perr != nil:
			fmt.Fprintln(out, perr)
			continue
		case next == nil:
			continue
		default:
			// failures are already reported through the renderer's notifications
			_ = ctl.Dispatch(ctx, next)
		}
		renderer.Render(ctl.State())
	}
}

// runSecretCommand prompts for passwords without echo. Only read errors are returned.
func runSecretCommand(ctx context.Context, cmd *cobra.Command, in *bufio.Reader, ctl *controller.Controller, verb string) error {
	if verb == "login" {
		password, err := promptSecret(cmd, in, "password: ")
		if err != nil {
			return err
		}
		_ = ctl.Dispatch(ctx, controller.Login{Password: password})
		return nil
	}

	_ = ctl.Dispatch(ctx, controller.OpenChangePassword{})
	oldPassword, err := promptSecret(cmd, in, "current password: ")
	if err != nil {
		return err
	}
	newPassword, err := promptSecret(cmd, in, "new password: ")
	if err != nil {
		return err
	}
	_ = ctl.Dispatch(ctx, controller.ChangePassword{Old: oldPassword, New: newPassword})
	return nil
}
