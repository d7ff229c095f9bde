package main

import (
	"log/slog"

	"github.com/emnt/spacesync/internal/config"
	"github.com/emnt/spacesync/internal/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync daemon and its control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			cmd.SilenceUsage = true
			closeLog, err := setupFileLogging(cfg.LogFile)
			if err != nil {
				return err
			}
			defer closeLog()

			showHeader()
			slog.Info("config loaded", "path", cfg.Path, "uploads", cfg.UploadsDir, "addr", cfg.HTTP.Addr, "log", cfg.LogFile)

			d, err := daemon.New(cfg)
			if err != nil {
				return err
			}
			defer slog.Info("Bye!")
			return d.Start(cmd.Context())
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("uploads", "u", "", "uploads directory to offload")
	cmd.Flags().String("uploads-url", "", "public base URL of the uploads directory")
	cmd.Flags().StringP("datadir", "d", config.DefaultDataDir, "directory for state, locks and logs")
	cmd.Flags().String("state", config.DriverSqlite, "state store driver (sqlite or badger)")
	return cmd
}
