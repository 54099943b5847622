// Package telemetry exports run and upload metrics plus log events over
// OTLP/HTTP. Without configured endpoints every Record call goes to the
// no-op global providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const serviceName = "whitelabel"

// Endpoints are the OTLP/HTTP URLs for each signal. Empty disables it.
type Endpoints struct {
	MetricsURL string
	LogsURL    string
}

// Provider holds the SDK providers installed by Init.
type Provider struct {
	shutdown []func(context.Context) error
	eps      Endpoints
}

// Init installs global meter and logger providers for the configured
// endpoints. The returned Provider must be shut down to flush exports.
func Init(ctx context.Context, eps Endpoints, version string) (*Provider, error) {
	p := &Provider{eps: eps}
	if eps.MetricsURL == "" && eps.LogsURL == "" {
		return p, nil
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	if eps.MetricsURL != "" {
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(eps.MetricsURL))
		if err != nil {
			return nil, fmt.Errorf("creating metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		p.shutdown = append(p.shutdown, mp.Shutdown)
	}
	if eps.LogsURL != "" {
		exp, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(eps.LogsURL))
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("creating log exporter: %w", err)
		}
		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(lp)
		p.shutdown = append(p.shutdown, lp.Shutdown)
	}
	initInstruments()
	return p, nil
}

// Enabled reports whether any signal is exported.
func (p *Provider) Enabled() bool { return len(p.shutdown) > 0 }

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdown {
		errs = append(errs, fn(ctx))
	}
	p.shutdown = nil
	return errors.Join(errs...)
}

// ScriptEnv returns variables that point an instrumented script at the
// same collector.
func (p *Provider) ScriptEnv() []string {
	var env []string
	if p.eps.MetricsURL != "" {
		env = append(env, "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT="+p.eps.MetricsURL)
	}
	if p.eps.LogsURL != "" {
		env = append(env, "OTEL_EXPORTER_OTLP_LOGS_ENDPOINT="+p.eps.LogsURL)
	}
	if len(env) > 0 {
		env = append(env, "OTEL_RESOURCE_ATTRIBUTES=service.name=whitelabel.sh")
	}
	return env
}
