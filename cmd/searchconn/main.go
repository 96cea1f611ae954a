// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command searchconn resolves search connection strings and checks that
// a client built from one can serve a match-all query.
//
// Every flag can also be set in a config file (--config) or through an
// environment variable prefixed with SEARCHCONN_, for example
// SEARCHCONN_URL or SEARCHCONN_EMBEDDED_CONFIG.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bufbuild/searchconn"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	flagConfig         = "config"
	flagURL            = "url"
	flagEmbeddedConfig = "embedded-config"
	flagLogLevel       = "log-level"
	flagTimeout        = "timeout"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	config := viper.New()
	root := &cobra.Command{
		Use:           "searchconn",
		Short:         "Resolve search connection strings and check the clients built from them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(config, cmd)
		},
	}
	root.PersistentFlags().String(flagConfig, "", "config file (yaml, json or toml)")
	root.PersistentFlags().String(flagURL, "", "connection string, such as cloud://zk1:2181/search?collection=products")
	root.PersistentFlags().String(flagLogLevel, "info", "log level (debug, info, warn, error)")

	root.AddCommand(newResolveCommand(config))
	root.AddCommand(newPingCommand(config))
	return root
}

func loadConfig(config *viper.Viper, cmd *cobra.Command) error {
	config.SetEnvPrefix("SEARCHCONN")
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	config.AutomaticEnv()
	if err := config.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if path := config.GetString(flagConfig); path != "" {
		config.SetConfigFile(path)
		if err := config.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if config.GetString(flagURL) == "" {
		return errors.New("no connection string given, set --url or SEARCHCONN_URL")
	}
	return nil
}

func newResolveCommand(config *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the settings resolved from a connection string",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := searchconn.Resolve(config.GetString(flagURL))
			if err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), settings)
		},
	}
}

type settingsOutput struct {
	Kind             string   `json:"kind"`
	Target           string   `json:"target"`
	URL              string   `json:"url"`
	Hosts            []string `json:"hosts"`
	Collection       string   `json:"collection,omitempty"`
	CoordinationRoot string   `json:"coordination_root,omitempty"`
	ConnectTimeout   string   `json:"connect_timeout"`
	RequestTimeout   string   `json:"request_timeout"`
}

func printSettings(out io.Writer, settings *searchconn.Settings) error {
	collection, _ := settings.Collection()
	root, _ := settings.CoordinationRoot()
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(settingsOutput{
		Kind:             settings.Kind().String(),
		Target:           settings.Target().Kind().String(),
		URL:              settings.URL(),
		Hosts:            settings.Hosts(),
		Collection:       collection,
		CoordinationRoot: root,
		ConnectTimeout:   settings.ConnectTimeout().String(),
		RequestTimeout:   settings.RequestTimeout().String(),
	})
}

func newPingCommand(config *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Build a client, run a match-all query and tear the client down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(config.GetString(flagLogLevel))
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), config.GetDuration(flagTimeout))
			defer cancel()
			return ping(ctx, cmd.OutOrStdout(), logger, config.GetString(flagURL), config.GetString(flagEmbeddedConfig))
		},
	}
	cmd.Flags().String(flagEmbeddedConfig, "default", "configuration directory for file:// connection strings")
	cmd.Flags().Duration(flagTimeout, time.Minute, "overall time limit")
	return cmd
}

func ping(ctx context.Context, out io.Writer, logger *zap.Logger, url, embeddedConfig string) error {
	manager := searchconn.NewManager(searchconn.WithLogger(logger))
	if err := manager.Initialize(ctx, url, embeddedConfig); err != nil {
		return err
	}
	defer manager.Destroy()

	handle := manager.Handle()
	resp, err := handle.Query(ctx, nil)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s: %d documents\n", handle.Kind(), resp.Results.NumFound)
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parsed)
	return config.Build()
}
