package app

import (
	"context"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreta/Beacon/internal/config"
	"github.com/Dreta/Beacon/pkg/features"
)

func TestApp_RunsWithoutDevices(t *testing.T) {
	defer leaktest.Check(t)()

	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Web.Enabled = false

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Init())

	assert.Equal(t, []features.Kind{features.KindSelectedHaptics, features.KindProximityHaptics}, a.Registry().Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, a.Run(ctx))

	a.Shutdown()
	assert.Empty(t, a.Registry().Enabled())
}

func TestApp_MissingModelLeavesFeatureOff(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Web.Enabled = false
	cfg.Detection.Object.Path = t.TempDir() + "/missing.onnx"
	cfg.Features.Enabled = []string{"identify", "selected_haptics"}

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Init())
	defer a.Shutdown()

	assert.False(t, a.Registry().IsEnabled(features.KindIdentify))
	assert.True(t, a.Registry().IsEnabled(features.KindSelectedHaptics))
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
