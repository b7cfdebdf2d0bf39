package testutil

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures every level", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.Debug("reading PROFZ")
		logger.Info("survey transformed", slog.Int("casts", 4))
		logger.Error("transform stage failed", slog.String("stage", "qc_mask"))

		assert.Equal(t, 3, logs.Count())
		assert.Len(t, logs.Records(slog.LevelError), 1)
		assert.Len(t, logs.Records(slog.LevelInfo, slog.LevelDebug), 2)
		assert.True(t, logs.ContainsMessage("transformed"))
		assert.True(t, logs.ContainsAttr("stage", "qc_mask"))
		assert.False(t, logs.ContainsAttr("stage", "persist"))
	})

	t.Run("bound attributes and groups", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.With(slog.String("component", "transformer")).
			WithGroup("cast").
			Info("cast masked", slog.Int("index", 2))

		records := logs.Records()
		require.Len(t, records, 1)
		assert.Equal(t, "transformer", records[0].Attrs["component"])
		assert.Equal(t, int64(2), records[0].Attrs["cast.index"])
		AssertLogAttr(t, logs, "component", "transformer")
	})

	t.Run("derived loggers share records", func(t *testing.T) {
		logger, logs := NewTestLogger(t)
		session := logger.With(slog.String("session_id", "s-1"))

		logger.Info("viewer started")
		session.Warn("selection rejected")

		assert.Equal(t, 2, logs.Count())
		AssertLogContains(t, logs, slog.LevelWarn, "rejected")

		logs.Clear()
		assert.Zero(t, logs.Count())
	})

	t.Run("concurrent logging", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				logger.Info("survey opened", slog.Int("worker", n))
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 10, logs.Count())
	})
}
