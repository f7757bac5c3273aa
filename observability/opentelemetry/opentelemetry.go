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

package opentelemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/penny-vault/pv-forecast/common"
)

const (
	Name = "github.com/penny-vault/pv-forecast"
)

// ShutdownFunc flushes pending spans and stops the exporter
type ShutdownFunc func(context.Context) error

// Config is the [otlp] section. An empty Endpoint disables tracing.
type Config struct {
	Endpoint string            `mapstructure:"endpoint"`
	HTTP     bool              `mapstructure:"http"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`

	// SampleRatio is the fraction of root spans kept; children follow their parent
	SampleRatio float64       `mapstructure:"sample_ratio" default:"1" validate:"gte=0,lte=1"`
	Timeout     time.Duration `mapstructure:"timeout" default:"10s" validate:"gt=0"`
}

// LoadConfig reads the otlp section from viper over the struct defaults
func LoadConfig() (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return cfg, err
	}
	if err := viper.UnmarshalKey("otlp", &cfg); err != nil {
		return cfg, fmt.Errorf("read otlp settings: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid otlp settings: %w", err)
	}
	return cfg, nil
}

// Setup loads the otlp settings and installs the global tracer provider
func Setup() (ShutdownFunc, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return noop, err
	}
	return Install(context.Background(), cfg)
}

// Install exports spans to cfg.Endpoint and makes the provider global. When
// no endpoint is set the global no-op provider stays and the returned
// shutdown does nothing.
func Install(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		log.Debug().Msg("otlp.endpoint not set; tracing disabled")
		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(common.ProgramName),
			semconv.ServiceVersionKey.String(common.CurrentVersion.String()),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("build trace resource: %w", err)
	}

	exporter, err := otlptrace.New(ctx, newClient(cfg))
	if err != nil {
		return noop, fmt.Errorf("start otlp exporter for %s: %w", cfg.Endpoint, err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	log.Info().Str("Endpoint", cfg.Endpoint).Bool("HTTP", cfg.HTTP).Float64("SampleRatio", cfg.SampleRatio).Msg("exporting traces")
	return provider.Shutdown, nil
}

func newClient(cfg Config) otlptrace.Client {
	if cfg.HTTP {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithHeaders(cfg.Headers),
			otlptracehttp.WithTimeout(cfg.Timeout),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.NewClient(opts...)
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithHeaders(cfg.Headers),
		otlptracegrpc.WithTimeout(cfg.Timeout),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.NewClient(opts...)
}

func noop(context.Context) error { return nil }

// Tracer returns the tracer every pv-forecast span is started from
func Tracer() trace.Tracer {
	return otel.Tracer(Name)
}

// RequestAttributes describes a served request; call it after the handler
// ran so the status code is known
func RequestAttributes(c *fiber.Ctx) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.HTTPClientIPKey.String(c.IP()),
		semconv.HTTPMethodKey.String(c.Method()),
		semconv.HTTPRouteKey.String(c.Route().Path),
		semconv.HTTPUserAgentKey.String(string(c.Context().UserAgent())),
		semconv.HTTPStatusCodeKey.Int(c.Response().StatusCode()),
	}
}
