package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"aci2netbox/internal/app"
	"aci2netbox/internal/syncer"
	"aci2netbox/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// 退出码
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// exitError 携带进程退出码。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error { return &exitError{code: code, err: err} }

// Runner 执行一次同步，便于在测试中替换真实服务。
type Runner func(ctx context.Context, cfg app.Config, modules []syncer.Name, logger *zap.Logger) (*syncer.Stats, error)

func defaultRunner(ctx context.Context, cfg app.Config, modules []syncer.Name, logger *zap.Logger) (*syncer.Stats, error) {
	svc, err := app.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			logger.Warn("close app service failed", zap.Error(err))
		}
	}()
	return svc.Run(ctx, modules)
}

// NewRootCommand 构建根命令：不带子命令时执行一次同步。
func NewRootCommand(version string, run Runner) *cobra.Command {
	if run == nil {
		run = defaultRunner
	}
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "aci2netbox",
		Short:         "Synchronize Cisco ACI fabric objects into NetBox",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, opts, run)
		},
	}
	opts.bindConfig(cmd.PersistentFlags())
	opts.bindSync(cmd.Flags())

	cmd.AddCommand(newServeCommand(opts), newVersionCommand(version))
	return cmd
}

func runSync(cmd *cobra.Command, opts *options, run Runner) error {
	cfg, err := opts.load(cmd.Flags())
	if err != nil {
		return fail(ExitFailure, err)
	}
	if err := cfg.Validate(); err != nil {
		return fail(ExitFailure, err)
	}
	modules, err := syncer.Resolve(opts.only, opts.skip, cfg.Sync.IncludeSoftware)
	if err != nil {
		return fail(ExitFailure, err)
	}
	logger, err := logging.NewZapLogger(logging.Options{Verbose: cfg.Log.Verbose, File: cfg.Log.File})
	if err != nil {
		return fail(ExitFailure, err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	stats, err := run(ctx, cfg, modules, logger)
	if stats != nil {
		fmt.Fprintln(cmd.OutOrStdout(), stats.Summary())
	}
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return fail(ExitInterrupted, errors.New("同步被中断"))
	case err != nil:
		return fail(ExitFailure, err)
	case stats != nil && stats.HasFailures():
		return fail(ExitFailure, fmt.Errorf("同步存在 %d 个失败记录", stats.TotalFailed()))
	}
	return nil
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the aci2netbox version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "aci2netbox", version)
		},
	}
}

// Execute 运行命令并返回进程退出码，SIGINT/SIGTERM 取消运行中的同步。
func Execute(version string, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, NewRootCommand(version, nil), args, stdout, stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	fmt.Fprintln(stderr, "Error:", err)
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return ExitFailure
}
