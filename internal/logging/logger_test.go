package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	dev, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, dev)

	prod, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, prod)
}

func TestNewCarriesServiceName(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)

	entry := logger.Check(zapcore.InfoLevel, "startup")
	require.NotNil(t, entry)
	require.Equal(t, "rosterwatch", entry.Entry.LoggerName)
}
