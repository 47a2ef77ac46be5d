package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StateObserver reports the current lifecycle state name of the master vault.
type StateObserver func(ctx context.Context) (string, error)

// RegisterVaultStateGauge registers an observable gauge reporting 1 for the state
// returned by observe and 0 for every other name in states. Nothing is reported
// for a scrape where observe fails.
func RegisterVaultStateGauge(
	meterProvider metric.MeterProvider,
	namespace string,
	states []string,
	observe StateObserver,
) error {
	meter := meterProvider.Meter(namespace)

	gauge, err := meter.Int64ObservableGauge(
		instrumentName(namespace, "vault_state"),
		metric.WithDescription("Lifecycle state of the master vault, 1 for the current state"),
	)
	if err != nil {
		return fmt.Errorf("failed to create vault state gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		current, err := observe(ctx)
		if err != nil {
			return nil
		}

		for _, state := range states {
			var value int64
			if state == current {
				value = 1
			}
			o.ObserveInt64(gauge, value, metric.WithAttributes(attribute.String("state", state)))
		}
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("failed to register vault state callback: %w", err)
	}

	return nil
}
