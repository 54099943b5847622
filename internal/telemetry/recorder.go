package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName  = "github.com/deixis/whitelabel"
	loggerName = "whitelabel"
)

type instruments struct {
	runStarts   metric.Int64Counter
	runExits    metric.Int64Counter
	iconUploads metric.Int64Counter
	runDuration metric.Float64Histogram
}

var (
	instOnce sync.Once
	inst     instruments
)

// initInstruments registers the instruments against the current global
// MeterProvider. Called by Init and lazily on first use.
func initInstruments() {
	instOnce.Do(func() {
		m := otel.GetMeterProvider().Meter(meterName)
		inst.runStarts, _ = m.Int64Counter("wl.run.starts.total",
			metric.WithDescription("Total whitelabel.sh runs started"),
		)
		inst.runExits, _ = m.Int64Counter("wl.run.exits.total",
			metric.WithDescription("Total whitelabel.sh runs finished, by outcome"),
		)
		inst.iconUploads, _ = m.Int64Counter("wl.icon.uploads.total",
			metric.WithDescription("Total icon uploads"),
		)
		inst.runDuration, _ = m.Float64Histogram("wl.run.duration_ms",
			metric.WithDescription("whitelabel.sh wall time in milliseconds"),
			metric.WithUnit("ms"),
		)
	})
}

func statusStr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func severity(err error) otellog.Severity {
	if err != nil {
		return otellog.SeverityError
	}
	return otellog.SeverityInfo
}

func errKV(err error) otellog.KeyValue {
	if err != nil {
		return otellog.String("error", err.Error())
	}
	return otellog.String("error", "")
}

func emit(ctx context.Context, body string, sev otellog.Severity, attrs ...otellog.KeyValue) {
	logger := global.GetLoggerProvider().Logger(loggerName)
	var r otellog.Record
	r.SetBody(otellog.StringValue(body))
	r.SetSeverity(sev)
	r.AddAttributes(attrs...)
	logger.Emit(ctx, r)
}

// RecordRunStart records a run start attempt. err is set when the run was
// refused before a process was spawned.
func RecordRunStart(ctx context.Context, runID, source string, err error) {
	initInstruments()
	status := statusStr(err)
	inst.runStarts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	))
	emit(ctx, "run.start", severity(err),
		otellog.String("run_id", runID),
		otellog.String("source", source),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordRunExit records how a run ended. outcome is one of the report
// statuses (succeeded, failed, canceled, incomplete).
func RecordRunExit(ctx context.Context, runID, outcome string, code int, d time.Duration) {
	initInstruments()
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	inst.runExits.Add(ctx, 1, attrs)
	inst.runDuration.Record(ctx, float64(d.Milliseconds()), attrs)

	sev := otellog.SeverityInfo
	if outcome != "succeeded" {
		sev = otellog.SeverityWarn
	}
	emit(ctx, "run.exit", sev,
		otellog.String("run_id", runID),
		otellog.String("outcome", outcome),
		otellog.Int("code", code),
		otellog.Float64("duration_ms", float64(d.Milliseconds())),
	)
}

// RecordIconUpload records an icon upload attempt.
func RecordIconUpload(ctx context.Context, size int, err error) {
	initInstruments()
	status := statusStr(err)
	inst.iconUploads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	emit(ctx, "icon.upload", severity(err),
		otellog.Int("bytes", size),
		otellog.String("status", status),
		errKV(err),
	)
}
