package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <project> <well>",
		Short: "Print the well document as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			store, err := cfg.openStore()
			if err != nil {
				return err
			}
			rec, err := store.LoadWell(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			data, err := rec.Encode()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err = out.Write(data); err != nil {
				return err
			}
			_, err = out.Write([]byte("\n"))
			return err
		},
	}
}
