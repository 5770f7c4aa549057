package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger_RoutesPackageFunctions(t *testing.T) {
	prev := L()
	t.Cleanup(func() { SetLogger(prev) })

	core, observed := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))

	Infof("recomputed %d matches", 3)
	Debug("hidden")
	With("user_id", "u1").Warn("lease lost")

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "recomputed 3 matches", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "u1", entries[1].ContextMap()["user_id"])
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
