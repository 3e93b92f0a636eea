package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/petroworks/go-wellstore/fileindex"
	"github.com/petroworks/go-wellstore/inspect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inspection HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return serve(cmd, cfg)
		},
	}
	cmd.Flags().String("listen", "127.0.0.1:8090", "address of the inspection server")
	cmd.Flags().Bool("watch", false, "keep the file index current with filesystem events")
	_ = v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = v.BindPFlag("watch", cmd.Flags().Lookup("watch"))
	return cmd
}

func serve(cmd *cobra.Command, cfg config) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store, err := cfg.openStore()
	if err != nil {
		return err
	}

	watchDone := make(chan error, 1)
	if cfg.Watch {
		w, err := fileindex.NewWatcher(cfg.Workspace, store.Index())
		if err != nil {
			return fmt.Errorf("cannot watch workspace: %w", err)
		}
		defer w.Close()
		go func() { watchDone <- w.Run(ctx) }()
	}

	h, err := inspect.New(store)
	if err != nil {
		return err
	}
	l, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(l) }()

	log.Infow("Serving inspection API", "addr", l.Addr().String(), "workspace", cfg.Workspace, "watch", cfg.Watch)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", l.Addr())

	var watchErr error
	select {
	case <-ctx.Done():
	case err = <-serveDone:
		return err
	case watchErr = <-watchDone:
		log.Errorw("Watcher stopped", "err", watchErr)
	}

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err = server.Shutdown(sctx); err != nil {
		return err
	}
	if err = <-serveDone; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("Inspection API stopped")
	return watchErr
}
