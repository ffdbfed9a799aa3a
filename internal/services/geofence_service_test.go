package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

func TestGeofenceService_ComputeRadiusBounds(t *testing.T) {
	svc := NewGeofenceService(nil)

	assert.Equal(t, 20.0, svc.ComputeRadius(models.ReputationInputs{TrustScore: 0.5, ActivityScore: 0}))
	assert.Equal(t, 50.0, svc.ComputeRadius(models.ReputationInputs{TrustScore: 1.0, ActivityScore: 10000}))

	// Activity beyond the cap adds nothing.
	assert.Equal(t, 50.0, svc.ComputeRadius(models.ReputationInputs{TrustScore: 1.0, ActivityScore: 1_000_000}))

	// Out-of-range trust is clamped before the formula, never inverted.
	assert.Equal(t, 20.0, svc.ComputeRadius(models.ReputationInputs{TrustScore: -3.0, ActivityScore: 0}))
	assert.Equal(t, 50.0, svc.ComputeRadius(models.ReputationInputs{TrustScore: 9.0, ActivityScore: 99999}))
}

func TestGeofenceService_ComputeRadiusMonotonic(t *testing.T) {
	svc := NewGeofenceService(nil)

	previous := 0.0
	for _, trust := range []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.0} {
		radius := svc.ComputeRadius(models.ReputationInputs{TrustScore: trust, ActivityScore: 0})
		assert.GreaterOrEqual(t, radius, previous)
		assert.GreaterOrEqual(t, radius, 20.0)
		assert.LessOrEqual(t, radius, 50.0)
		previous = radius
	}

	previous = 0.0
	for _, activity := range []int64{0, 100, 1000, 5000, 10000, 50000} {
		radius := svc.ComputeRadius(models.ReputationInputs{TrustScore: 0.75, ActivityScore: activity})
		assert.GreaterOrEqual(t, radius, previous)
		previous = radius
	}
}

func storePoint(t *testing.T, vault *VaultService, point models.GeoPoint) string {
	t.Helper()
	data, err := json.Marshal(point)
	require.NoError(t, err)
	_, grant, err := vault.Store(context.Background(), "gps", data)
	require.NoError(t, err)
	return grant
}

func TestGeofenceService_WithinRadius(t *testing.T) {
	vault, _ := newTestVaultService(time.Minute)
	svc := NewGeofenceService(vault)
	ctx := context.Background()

	// Vilnius old town and airport, roughly 5 km apart.
	vilniusOldTown := storePoint(t, vault, models.GeoPoint{Lat: 54.6872, Lon: 25.2797})
	vilniusAirport := storePoint(t, vault, models.GeoPoint{Lat: 54.6341, Lon: 25.2858})
	// Kaunas is about 90 km from Vilnius.
	kaunas := storePoint(t, vault, models.GeoPoint{Lat: 54.8985, Lon: 23.9036})

	within, err := svc.WithinRadius(ctx, vilniusOldTown, vilniusAirport, 20)
	require.NoError(t, err)
	assert.True(t, within)

	within, err = svc.WithinRadius(ctx, vilniusOldTown, kaunas, 50)
	require.NoError(t, err)
	assert.False(t, within)
}

// A point that fails to decrypt is a hard error, never "out of range".
func TestGeofenceService_DecryptFailurePropagates(t *testing.T) {
	vault, _ := newTestVaultService(time.Minute)
	svc := NewGeofenceService(vault)
	ctx := context.Background()

	valid := storePoint(t, vault, models.GeoPoint{Lat: 54.6872, Lon: 25.2797})

	within, err := svc.WithinRadius(ctx, valid, "not-a-grant", 50)
	assert.ErrorIs(t, err, ErrGrantInvalid)
	assert.False(t, within)
}
