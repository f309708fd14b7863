package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oddsflow/rosterwatch/internal/config"
)

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewWithDefaults(t *testing.T) {
	cfg := defaultConfig(t)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.loops, 0)
	require.NotNil(t, a.queue)
	require.NotNil(t, a.fingerprints)
	require.Nil(t, a.headless)
}

func TestNewBuildsClassifierWhenKeySet(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Classifier.APIKey = "test-key"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	classifier, err := a.buildClassifier()
	require.NoError(t, err)
	require.NotNil(t, classifier)
}

func TestRunRequiresSources(t *testing.T) {
	cfg := defaultConfig(t)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	err = a.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no sources")
}
