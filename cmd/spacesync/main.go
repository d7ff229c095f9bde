package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/emnt/spacesync/internal/config"
	"github.com/emnt/spacesync/internal/utils"
	"github.com/emnt/spacesync/internal/version"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileName = "config"

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "spacesync",
		Short:         "Offload a media library to DigitalOcean Spaces",
		Version:       version.Detailed(),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, v)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default ~/.spacesync/config.{yaml,json,toml})")
	root.PersistentFlags().String("addr", config.DefaultAddr, "control plane address (host:port)")
	root.PersistentFlags().String("token", "", "control plane bearer token")

	root.AddCommand(
		newServeCmd(v),
		newSyncCmd(v),
		newSettingsCmd(v),
		newVersionCmd(),
	)
	return root
}

func main() {
	slog.SetDefault(slog.New(newStdoutHandler(os.Stdout)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(config.DefaultDataDir)
		v.SetConfigName(configFileName)
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	config.SetDefaults(v)

	bindFlag(v, "http.addr", cmd.Flags().Lookup("addr"))
	bindFlag(v, "http.token", cmd.Flags().Lookup("token"))
	bindFlag(v, "data_dir", cmd.Flags().Lookup("datadir"))
	bindFlag(v, "uploads_dir", cmd.Flags().Lookup("uploads"))
	bindFlag(v, "uploads_url", cmd.Flags().Lookup("uploads-url"))
	bindFlag(v, "state.driver", cmd.Flags().Lookup("state"))

	v.SetEnvPrefix("SPACESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return nil
}

// bindFlag skips flags the current command does not define.
func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if flag != nil {
		_ = v.BindPFlag(key, flag)
	}
}

func newStdoutHandler(w io.Writer) slog.Handler {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    noColor,
	})
}

// setupFileLogging sends logs to stdout and to logFile. The returned func closes the file.
func setupFileLogging(logFile string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the interceptor adds the time
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(newStdoutHandler(os.Stdout), fileHandler)))

	return func() error {
		return errors.Join(logInterceptor.Close(), file.Close())
	}, nil
}
