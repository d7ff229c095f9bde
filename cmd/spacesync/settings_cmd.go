package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/emnt/spacesync/internal/sdk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSettingsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the Spaces settings of a running daemon",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient(v).Settings.Get(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), res)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Update settings; only the flags given change",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(v)
			current, err := client.Settings.Get(cmd.Context())
			if err != nil {
				return err
			}

			next, err := applySettingsFlags(cmd, current.Settings)
			if err != nil {
				return err
			}
			res, err := client.Settings.Update(cmd.Context(), &next)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), green("settings saved"))
			printSettings(cmd.OutOrStdout(), res)
			return nil
		},
	}
	set.Flags().SortFlags = false
	set.Flags().String("access-key", "", "Spaces access key")
	set.Flags().String("secret-key", "", "Spaces secret key")
	set.Flags().String("space", "", "Space (bucket) name")
	set.Flags().String("region", "", "Space region, e.g. ams3")
	set.Flags().String("cdn-url", "", "CDN base URL for public links")
	set.Flags().String("endpoint", "", "custom S3 endpoint")
	set.Flags().String("driver", "", "storage driver (s3 or minio)")
	set.Flags().String("subfolder", "", "store objects under this subfolder")
	set.Flags().Bool("no-subfolder", false, "store objects at the bucket root")

	check := &cobra.Command{
		Use:   "check",
		Short: "Verify the daemon can list the Space with the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient(v).Settings.Check(cmd.Context())
			if err != nil {
				return err
			}
			state := "has objects"
			if res.Empty {
				state = "empty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s (%s)\n", green("ok"), res.Bucket, res.Prefix, state)
			return nil
		},
	}

	cmd.AddCommand(show, set, check)
	return cmd
}

// applySettingsFlags overlays the changed flags on s. Masked secrets left in s are kept by the daemon.
func applySettingsFlags(cmd *cobra.Command, s sdk.Settings) (sdk.Settings, error) {
	flags := cmd.Flags()
	fields := map[string]*string{
		"access-key": &s.AccessKey,
		"secret-key": &s.SecretKey,
		"space":      &s.SpaceName,
		"region":     &s.Region,
		"cdn-url":    &s.CDNURL,
		"endpoint":   &s.Endpoint,
		"driver":     &s.Driver,
	}
	for name, field := range fields {
		if flags.Changed(name) {
			*field, _ = flags.GetString(name)
		}
	}

	if flags.Changed("subfolder") && flags.Changed("no-subfolder") {
		return s, fmt.Errorf("--subfolder and --no-subfolder are mutually exclusive")
	}
	if flags.Changed("subfolder") {
		s.UseSubfolder = true
		s.SubfolderName, _ = flags.GetString("subfolder")
	}
	if off, _ := flags.GetBool("no-subfolder"); off {
		s.UseSubfolder = false
	}
	return s, nil
}

func printSettings(w io.Writer, res *sdk.SettingsResponse) {
	s := res.Settings
	subfolder := gray("none")
	if s.UseSubfolder {
		subfolder = s.SubfolderName
	}
	complete := red("incomplete")
	if res.Complete {
		complete = green("complete")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("space"), s.SpaceName)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("region"), s.Region)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("driver"), s.Driver)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("endpoint"), s.Endpoint)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("cdn url"), s.CDNURL)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("subfolder"), subfolder)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("access key"), s.AccessKey)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("secret key"), s.SecretKey)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("status"), complete)
	_ = tw.Flush()
}
