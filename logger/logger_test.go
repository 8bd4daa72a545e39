package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: VerbosityInfo},
		{name: "Console output mode", jsonOutput: false, verbosity: VerbosityUser},
		{name: "Console debug", jsonOutput: false, verbosity: VerbosityDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			require.NoError(t, Initialize(tt.jsonOutput, tt.verbosity))
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)
			assert.True(t, Logger.Desugar().Core().Enabled(VerbosityToLevel(tt.verbosity)))
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(-1))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(7))
	assert.Equal(t, "Info (-v)", LevelName(1))
}

func TestFieldsFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FieldsFromContext(ctx))

	ctx = WithJobID(ctx, 12)
	ctx = WithRunID(ctx, "run-abc")
	ctx = WithComponent(ctx, "pulse.rounds")

	fields := FieldsFromContext(ctx)
	assert.Equal(t, []interface{}{
		FieldJobID, 12,
		FieldRunID, "run-abc",
		FieldComponent, "pulse.rounds",
	}, fields)
}

func TestLoggerFromContextFallsBackToGlobal(t *testing.T) {
	require.NoError(t, Initialize(false, VerbosityUser))
	assert.Same(t, Logger, LoggerFromContext(context.Background()))
	assert.NotSame(t, Logger, LoggerFromContext(WithJobID(context.Background(), 1)))
}
