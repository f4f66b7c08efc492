package domain

import (
	"context"
	"time"

	devicedomain "github.com/smallbiznis/fleetwatch/internal/device/domain"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
)

// MaterializeRequest carries one rule's triggered devices from a sweep.
type MaterializeRequest struct {
	Rule        ruledomain.Rule
	Condition   ruledomain.Condition
	Devices     []devicedomain.Device
	// Observed is the deciding telemetry value per device id, when there is one.
	Observed    map[string]float64
	TriggeredAt time.Time
}

type Service interface {
	// Materialize builds and persists one alert per device. On error the alerts are returned
	// alongside an ErrPersist-wrapped error and nothing is retried.
	Materialize(ctx context.Context, req MaterializeRequest) ([]Alert, error)
}
