package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPreloadCmd(v *viper.Viper) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "preload <project>",
		Short: "Load every well of a project and report failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			store, err := cfg.openStore()
			if err != nil {
				return err
			}

			res := store.PreloadProject(cmd.Context(), args[0], concurrency)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded %s of %s wells of %s\n", humanize.Comma(int64(res.LoadedWells)),
				humanize.Comma(int64(res.TotalWells)), res.Project)
			if res.Err == nil {
				return nil
			}
			var merr *multierror.Error
			if errors.As(res.Err, &merr) {
				for _, err := range merr.WrappedErrors() {
					fmt.Fprintf(out, "Failed %s\n", err)
				}
			}
			return fmt.Errorf("%d wells failed to load", len(res.FailedWells))
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "files read at the same time (default preload-concurrency)")
	return cmd
}
