package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Parallel()

	for _, dev := range []bool{true, false} {
		logger, err := New(dev)
		require.NoError(t, err)
		require.NotNil(t, logger)
		logger.Info("logger ready", zap.Bool("development", dev))
		_ = logger.Sync()
	}
}

func TestNamed(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	Named(zap.New(core), "scanner").Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "scanner", entries[0].LoggerName)

	require.NotPanics(t, func() { Named(nil, "x").Info("dropped") })
}
