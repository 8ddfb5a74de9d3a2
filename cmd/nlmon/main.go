//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/hkwi/nlmsg/rtlink"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var (
	rootCmd = &cobra.Command{
		Use:   "nlmon",
		Short: "Log and count rtnetlink link events.",
		Long:  "nlmon dumps the current links, then follows RTNLGRP_LINK and logs every change.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := ReadConf(confPathFlag)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				conf.MetricsAddr = metricsAddrFlag
			}
			if cmd.Flags().Changed("log-level") {
				conf.LogLevel = logLevelFlag
			}

			level, ok := logLevelMap[conf.LogLevel]
			if !ok {
				return fmt.Errorf("unknown log level %q", conf.LogLevel)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			slog.Debug("configuration", "conf", conf.String())

			return run(conf)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("built commit: %s\n", builtCommit)
		},
	}

	confPathFlag    string
	metricsAddrFlag string
	logLevelFlag    string
	builtCommit     = "dev"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&confPathFlag, "config", "", "path to the YAML configuration")
	rootCmd.Flags().StringVar(&metricsAddrFlag, "metrics-addr", "", "serve /metrics on this address")
	rootCmd.Flags().StringVar(&logLevelFlag, "log-level", "info", "one of debug, info, warn or error")

	// Disable completion please!
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

func run(conf *Config) error {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	if err := m.register(reg); err != nil {
		return fmt.Errorf("error registering the metrics: %w", err)
	}

	var server *http.Server
	if conf.MetricsAddr != "" {
		handler := http.NewServeMux()
		handler.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		server = &http.Server{
			Addr:    conf.MetricsAddr,
			Handler: handler,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil {
				slog.Info("stopped listening", "err", err)
			}
		}()
	}

	l, err := rtlink.NewListener(conf.Netlink)
	if err != nil {
		return fmt.Errorf("error opening the listener: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, unix.SIGTERM)

	msgChan := make(chan []rtlink.Message)
	errChan := make(chan error, 1)
	go func() {
		for {
			msgs, err := l.Recv()
			if err != nil {
				errChan <- err
				return
			}
			msgChan <- msgs
		}
	}()

	mon := newMonitor(m)
	for {
		select {
		case msgs := <-msgChan:
			for _, msg := range msgs {
				mon.handle(msg)
			}
		case err := <-errChan:
			l.Close()
			return fmt.Errorf("error receiving: %w", err)
		case <-sigChan:
			slog.Debug("cleanly exiting")
			l.Close()
			if server != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			}
			return nil
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
