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
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/data"
	"github.com/penny-vault/pv-forecast/forecast"
	"github.com/penny-vault/pv-forecast/handler"
	"github.com/penny-vault/pv-forecast/router"
	"github.com/penny-vault/pv-forecast/tradecron"
)

// refreshSchedule fires half an hour after every NYSE close, once the
// treasury rate for the day is likely published
const refreshSchedule = "@close 30"

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	viper.BindEnv("server.cors_origins", "PVF_CORS_ORIGINS")
	serveCmd.Flags().String("cors-origins", "", "Comma separated list of origins allowed to call the API")
	viper.BindPFlag("server.cors_origins", serveCmd.Flags().Lookup("cors-origins"))

	rootCmd.AddCommand(serveCmd)
}

// scheduleRiskFreeRefresh refreshes the cached risk-free rate after the
// close of every trading day
func scheduleRiskFreeRefresh(manager *data.Manager) (*gocron.Scheduler, error) {
	tc, err := tradecron.New(refreshSchedule, tradecron.RegularHours)
	if err != nil {
		return nil, err
	}

	scheduler := gocron.NewScheduler(common.GetTimezone())
	_, err = scheduler.Cron(tc.TimeSpec).Do(func() {
		now := manager.Now()
		if !tc.IsTradeDay(now) {
			log.Debug().Time("Now", now).Msg("market closed today; skipping risk-free refresh")
			return
		}
		if _, err := manager.RefreshRiskFreeRate(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not refresh risk-free rate")
		}
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("Schedule", refreshSchedule).Str("TimeSpec", tc.TimeSpec).Msg("scheduled risk-free rate refresh")
	return scheduler, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pvforecast API server",
	Long:  `Run an HTTP server that exposes model comparisons, predictions, CAPM and portfolio analysis as JSON`,
	Run: func(cmd *cobra.Command, args []string) {
		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create profile output")
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				log.Fatal().Err(err).Msg("could not start cpu profile")
			}
			defer pprof.StopCPUProfile()
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create trace output file")
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Fatal().Err(err).Msg("failed to close trace file")
				}
			}()

			if err := trace.Start(f); err != nil {
				log.Fatal().Err(err).Msg("failed to start trace")
			}
			defer trace.Stop()
		}

		manager := newManager()
		settings := loadSettings()
		forecast.InitializeModelMap()

		// warm the rate so the first CAPM request does not pay for it
		if _, err := manager.RefreshRiskFreeRate(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not load risk-free rate")
		}

		scheduler, err := scheduleRiskFreeRefresh(manager)
		if err != nil {
			log.Fatal().Err(err).Msg("could not schedule risk-free refresh")
		}
		scheduler.StartAsync()
		defer scheduler.Stop()

		h := handler.New(manager, settings, tradecron.NewMarketStatus(&tradecron.RegularHours))
		app := router.New(h, viper.GetString("server.cors_origins"))

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("shutdown failed")
			}
		}()

		log.Info().Str("Port", viper.GetString("server.port")).Str("Provider", manager.ProviderName()).Msg("starting server")
		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	},
}
