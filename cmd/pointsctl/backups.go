package main

import (
	"bufio"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-merit/internal/console"
	"github.com/noah-isme/sma-merit/internal/controller"
	"github.com/noah-isme/sma-merit/internal/models"
)

func newBackupsCmd(a *app) *cobra.Command {
	backupsCmd := &cobra.Command{
		Use:   "backups",
		Short: "List and restore ledger backups",
	}
	backupsCmd.AddCommand(newBackupsListCmd(a), newBackupsRestoreCmd(a))
	return backupsCmd
}

func newBackupsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show stored backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx, console.NewRenderer(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer s.close()
			if err := a.login(ctx, cmd, bufio.NewReader(cmd.InOrStdin()), s); err != nil {
				return err
			}
			backups, err := s.backend.ListBackups(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRECORDS\tSIZE\tCREATED")
			for _, b := range backups {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", b.Name, b.Records, b.Size, b.CreatedAt.Local().Format(models.LastActivityLayout))
			}
			return w.Flush()
		},
	}
}

func newBackupsRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Replace every record with the content of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx, console.NewRenderer(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer s.close()
			if err := a.login(ctx, cmd, bufio.NewReader(cmd.InOrStdin()), s); err != nil {
				return err
			}
			return s.ctl.Dispatch(ctx, controller.RestoreBackup{Name: args[0]})
		},
	}
}
