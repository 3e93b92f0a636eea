package main

import (
	"errors"
	"fmt"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/petroworks/go-wellstore/wellcache"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logging.Logger("wellstore")

const (
	envPrefix  = "WELLSTORE"
	configName = "wellstore"
)

type config struct {
	Workspace          string
	LazyCap            int
	PreloadConcurrency int
	LogLevel           string
	Listen             string
	Watch              bool
}

func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		Workspace:          v.GetString("workspace"),
		LazyCap:            v.GetInt("lazy-cap"),
		PreloadConcurrency: v.GetInt("preload-concurrency"),
		LogLevel:           v.GetString("log-level"),
		Listen:             v.GetString("listen"),
		Watch:              v.GetBool("watch"),
	}
	if cfg.Workspace == "" {
		return config{}, errors.New("workspace is required")
	}
	return cfg, nil
}

func (c config) storeOptions() []wellcache.Option {
	return []wellcache.Option{
		wellcache.WithLazyCap(c.LazyCap),
		wellcache.WithPreloadConcurrency(c.PreloadConcurrency),
	}
}

func (c config) openStore() (*wellcache.Store, error) {
	return wellcache.New(c.Workspace, c.storeOptions()...)
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:          "wellstore",
		Short:        "Inspect and serve the well data of a workspace",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := readConfig(v, configFile); err != nil {
				return err
			}
			lvl, err := logging.LevelFromString(v.GetString("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			logging.SetAllLoggers(lvl)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./"+configName+".yaml)")
	flags.StringP("workspace", "w", ".", "workspace root directory")
	flags.Int("lazy-cap", 50, "soft bound on lazily loaded cache entries")
	flags.Int("preload-concurrency", 10, "well files read at the same time during a preload")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newIndexCmd(v),
		newPreloadCmd(v),
		newGetCmd(v),
		newServeCmd(v),
	)
	return root
}

func readConfig(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("cannot read config: %w", err)
	}
	log.Debugw("Read config file", "file", v.ConfigFileUsed())
	return nil
}
