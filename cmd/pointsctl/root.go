package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit/internal/client"
	"github.com/noah-isme/sma-merit/internal/controller"
	"github.com/noah-isme/sma-merit/pkg/config"
	"github.com/noah-isme/sma-merit/pkg/logger"
	"github.com/noah-isme/sma-merit/pkg/storage"
)

const passwordEnv = "POINTSCTL_PASSWORD"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	server    string
	local     bool
	exportDir string
	logLevel  string
	password  string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pointsctl",
		Short:         "Record and review student merit points",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.server, "server", "", "API base URL (default from POINTSCTL_SERVER)")
	flags.BoolVar(&a.local, "local", false, "Talk to the database directly instead of the API")
	flags.StringVar(&a.exportDir, "export-dir", "", "Directory receiving exported files (default from POINTSCTL_EXPORT_DIR)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level written to stderr")
	flags.StringVar(&a.password, "password", "", "Operator password (default from "+passwordEnv+", otherwise prompted)")

	root.AddCommand(
		newShellCmd(a),
		newExportCmd(a),
		newBackupsCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.server == "" {
		a.server = cfg.CLI.Server
	}
	if a.exportDir == "" {
		a.exportDir = cfg.CLI.ExportDir
	}
	if a.password == "" {
		a.password = os.Getenv(passwordEnv)
	}
	a.cfg = cfg

	a.logger, err = logger.NewCLI(a.logLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

// session is a controller bound to a backend plus whatever must be released afterwards.
type session struct {
	ctl     *controller.Controller
	backend controller.Backend
	close   func()
}

func (a *app) open(ctx context.Context, notifier controller.Notifier) (*session, error) {
	sink, err := storage.NewLocalStorage(a.exportDir)
	if err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}

	var (
		backend controller.Backend
		closeFn = func() {}
	)
	if a.local {
		local, cleanup, err := newLocalBackend(ctx, a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
		backend, closeFn = local, cleanup
	} else {
		backend = client.NewHTTPBackend(a.server)
	}

	ctl := controller.New(backend, controller.Options{
		Sink:     sink,
		Notifier: notifier,
		Logger:   a.logger,
	})
	return &session{ctl: ctl, backend: backend, close: closeFn}, nil
}

// login authenticates with the configured password or prompts for one.
func (a *app) login(ctx context.Context, cmd *cobra.Command, in *bufio.Reader, s *session) error {
	password := a.password
	if password == "" {
		var err error
		password, err = promptSecret(cmd, in, "password: ")
		if err != nil {
			return err
		}
	}
	if err := s.ctl.Dispatch(ctx, controller.Login{Password: password}); err != nil {
		return errors.New(s.ctl.State().LoginError)
	}
	return nil
}
