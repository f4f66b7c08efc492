package repository

import (
	"context"
	"testing"
	"time"

	telemetrydomain "github.com/smallbiznis/fleetwatch/internal/telemetry/domain"
	"github.com/smallbiznis/fleetwatch/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestReadingsNewestFirstWithinWindow(t *testing.T) {
	db := testutil.OpenSQLite(t, &telemetrydomain.Reading{}, &telemetrydomain.Payload{})
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	rows := []telemetrydomain.Reading{
		{DeviceID: "dev-a", Metric: "temperature", Value: 70, Timestamp: now.Add(-10 * time.Minute)},
		{DeviceID: "dev-a", Metric: "temperature", Value: 82, Timestamp: now.Add(-3 * time.Minute)},
		{DeviceID: "dev-a", Metric: "temperature", Value: 85, Timestamp: now.Add(-time.Minute)},
		{DeviceID: "dev-a", Metric: "humidity", Value: 40, Timestamp: now.Add(-time.Minute)},
		{DeviceID: "dev-b", Metric: "temperature", Value: 99, Timestamp: now.Add(-time.Minute)},
	}
	require.NoError(t, db.Create(&rows).Error)

	src := New(db, Config{})
	got, err := src.Readings(context.Background(), "dev-a", "temperature", now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 85.0, got[0].Value)
	require.Equal(t, 82.0, got[1].Value)
}

func TestPayloadsDecodeJSON(t *testing.T) {
	db := testutil.OpenSQLite(t, &telemetrydomain.Reading{}, &telemetrydomain.Payload{})
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	rows := []telemetrydomain.Payload{
		{DeviceID: "dev-a", Telemetry: datatypes.JSONMap{"type": 1, "value": 21.5}, ReceivedAt: now.Add(-2 * time.Minute)},
		{DeviceID: "dev-a", Telemetry: datatypes.JSONMap{"env": map[string]any{"temp": 22}}, ReceivedAt: now.Add(-time.Minute)},
		{DeviceID: "dev-a", Telemetry: datatypes.JSONMap{"temperature": 1}, ReceivedAt: now.Add(-time.Hour)},
	}
	require.NoError(t, db.Create(&rows).Error)

	src := New(db, Config{MaxPayloads: 1})
	got, err := src.Payloads(context.Background(), "dev-a", now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	env, ok := got[0].Fields()["env"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 22, env["temp"])
}
