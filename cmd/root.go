// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/observability/opentelemetry"
)

var (
	Profile bool
	Trace   bool

	shutdownTracing func(context.Context) error
)

func init() {
	viper.SetDefault("data.provider", "yahoo")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.local_size", 128)
	viper.SetDefault("cache.ttl", 6*60*60)

	// Market data
	viper.BindEnv("data.provider", "PVF_DATA_PROVIDER")
	rootCmd.PersistentFlags().String("provider", "yahoo", "Market data provider: yahoo or tiingo")
	viper.BindPFlag("data.provider", rootCmd.PersistentFlags().Lookup("provider"))

	viper.BindEnv("tiingo.token", "TIINGO_TOKEN")
	rootCmd.PersistentFlags().String("tiingo-token", "", "Tiingo API token")
	viper.BindPFlag("tiingo.token", rootCmd.PersistentFlags().Lookup("tiingo-token"))

	// Cache
	viper.BindEnv("cache.enabled", "PVF_CACHE_ENABLED")
	rootCmd.PersistentFlags().Bool("cache", true, "Cache downloaded market data")
	viper.BindPFlag("cache.enabled", rootCmd.PersistentFlags().Lookup("cache"))

	viper.BindEnv("cache.redis_url", "REDIS_URL")
	rootCmd.PersistentFlags().String("redis-url", "", "Share the market data cache through redis")
	viper.BindPFlag("cache.redis_url", rootCmd.PersistentFlags().Lookup("redis-url"))

	// Tracing
	viper.BindEnv("otlp.endpoint", "PVF_OTLP_ENDPOINT")
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OTLP collector to send traces to, if blank tracing is disabled")
	viper.BindPFlag("otlp.endpoint", rootCmd.PersistentFlags().Lookup("otlp-endpoint"))

	// Logging configuration
	viper.BindEnv("log.level", "PVF_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "PVF_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "PVF_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	viper.BindEnv("log.pretty", "PVF_LOG_PRETTY")
	rootCmd.PersistentFlags().Bool("log-pretty", true, "Pretty print log messages instead of JSON")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     common.ProgramName,
	Version: common.CurrentVersion.String(),
	Short:   "Compare stock price forecasting models",
	Long: `pvforecast fits ARIMA, SARIMA, Holt-Winters and LSTM models to the
daily closing prices of a stock, scores each against the held-out tail of the
history and reports the results. It can also forecast the next trading days,
estimate CAPM expected returns and analyse a small portfolio.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()

		if err := common.SetupCache(); err != nil {
			log.Warn().Err(err).Msg("market data cache disabled")
		}

		var err error
		shutdownTracing, err = opentelemetry.Setup()
		if err != nil {
			log.Warn().Err(err).Msg("tracing disabled")
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shutdownTracing == nil {
			return
		}
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not flush traces")
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
