package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
	})

	t.Run("derived loggers share the buffer", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "ingest")).Warn("unknown municipality")
		logger.Warn("unknown municipality")

		assert.Equal(t, 2, handler.CountMessage("unknown municipality"))
		AssertLogAttr(t, handler, "component", "ingest")
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
		AssertLogContains(t, handler, slog.LevelWarn, "warn")
	})
}

func TestCSVFixture_WriteLatin1(t *testing.T) {
	path := NewCSVFixture("2022").
		Row("001", "123", "Padaria São João", "Areal", "1.234,56").
		WriteLatin1(t, t.TempDir(), "2022.csv")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "Padaria São João")
	assert.Contains(t, string(decoded), "Valor Adicionado 2022 (R$)")
	// ã is a single byte in Latin-1
	assert.NotContains(t, string(raw), "São")
}
