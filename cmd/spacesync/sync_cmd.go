package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/emnt/spacesync/internal/sdk"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSyncCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Control media synchronization on a running daemon",
	}

	enable := &cobra.Command{
		Use:   "enable",
		Short: "Turn sync on and start offloading every asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newClient(v).Sync.Enable(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), green("sync enabled"))
			printProgress(cmd.OutOrStdout(), p)
			return nil
		},
	}

	disable := &cobra.Command{
		Use:   "disable",
		Short: "Turn sync off, pulling remote files back first when needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient(v).Sync.Disable(cmd.Context())
			if err != nil {
				return err
			}
			if res.Mode == "reverse" {
				fmt.Fprintln(cmd.OutOrStdout(), yellow("restoring remote files, sync turns off when done"))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), green("sync disabled"))
			}
			printProgress(cmd.OutOrStdout(), res.Progress)
			return nil
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel",
		Short: "Stop any running pass and turn sync off",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := newClient(v).Sync.Cancel(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), green("sync cancelled"))
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show sync progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newClient(v).Sync.Progress(cmd.Context())
			if err != nil {
				return err
			}
			if raw, _ := cmd.Flags().GetBool("json"); raw {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(p)
			}
			printProgress(cmd.OutOrStdout(), p)
			return nil
		},
	}
	status.Flags().Bool("json", false, "print raw json")

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Follow sync progress until the pass completes",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			stay, _ := cmd.Flags().GetBool("stay")
			client := newClient(v)
			return runWatchTUI(cmd.Context(), client.Sync.Progress, interval, !stay)
		},
	}
	watch.Flags().Duration("interval", time.Second, "poll interval")
	watch.Flags().Bool("stay", false, "keep watching after the pass completes")

	cmd.AddCommand(enable, disable, cancel, status, watch)
	return cmd
}

func printProgress(w io.Writer, p *sdk.Progress) {
	if p == nil {
		return
	}
	enabled := gray("off")
	if p.Enabled {
		enabled = green("on")
	}

	if p.Complete {
		fmt.Fprintf(w, "%s %s\n%s idle\n", cyan("enabled:"), enabled, cyan("state:  "))
		return
	}
	fmt.Fprintf(w, "%s %s\n%s %s sync, %s of %s %s\n",
		cyan("enabled:"), enabled,
		cyan("state:  "), p.Direction,
		humanize.Comma(int64(p.Progress)), humanize.Comma(int64(p.Total)), itemNoun(p.Direction),
	)
}

func itemNoun(direction string) string {
	if direction == "reverse" {
		return "objects"
	}
	return "assets"
}
