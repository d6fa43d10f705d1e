package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	chargesCreated    metric.Int64Counter
	chargesSkipped    metric.Int64Counter
	chargeTransitions metric.Int64Counter
	ledgerEntries     metric.Int64Counter
	draftPicks        metric.Int64Counter
	captainSelections metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "clubhouse"
	}
	meter := provider.Meter(name)

	chargesCreated, err := meter.Int64Counter("clubhouse_charges_created_total")
	if err != nil {
		return nil, err
	}
	chargesSkipped, err := meter.Int64Counter("clubhouse_charges_skipped_total")
	if err != nil {
		return nil, err
	}
	chargeTransitions, err := meter.Int64Counter("clubhouse_charge_transitions_total")
	if err != nil {
		return nil, err
	}
	ledgerEntries, err := meter.Int64Counter("clubhouse_ledger_entries_total")
	if err != nil {
		return nil, err
	}
	draftPicks, err := meter.Int64Counter("clubhouse_draft_picks_total")
	if err != nil {
		return nil, err
	}
	captainSelections, err := meter.Int64Counter("clubhouse_captain_selections_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("clubhouse_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		chargesCreated:    chargesCreated,
		chargesSkipped:    chargesSkipped,
		chargeTransitions: chargeTransitions,
		ledgerEntries:     ledgerEntries,
		draftPicks:        draftPicks,
		captainSelections: captainSelections,
		rateLimitDenied:   rateLimitDenied,
	}, nil
}

// RecordChargeRun adds the outcome of one charge generation run.
func (m *Metrics) RecordChargeRun(ctx context.Context, cycleType string, created, skipped int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("cycle_type", strings.TrimSpace(cycleType)))...)
	if created > 0 {
		m.chargesCreated.Add(ctx, int64(created), attrs)
	}
	if skipped > 0 {
		m.chargesSkipped.Add(ctx, int64(skipped), attrs)
	}
}

// RecordChargeTransition counts applied charge status changes.
func (m *Metrics) RecordChargeTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
	)
	m.chargeTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLedgerEntry increments ledger entry counts.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, entryType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("entry_type", strings.TrimSpace(entryType)))
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDraftPick increments accepted draft picks per side.
func (m *Metrics) RecordDraftPick(ctx context.Context, side string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("team_side", strings.TrimSpace(side)))
	m.draftPicks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCaptainSelection increments captain assignments by mode.
func (m *Metrics) RecordCaptainSelection(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("mode", strings.TrimSpace(mode)))
	m.captainSelections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"cycle_type":  {},
	"from":        {},
	"to":          {},
	"entry_type":  {},
	"team_side":   {},
	"mode":        {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
