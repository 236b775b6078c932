package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-platform/internal/infra/logger"
)

func TestProductionLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithEnvironment("production", "donations"), logger.WithOutput(&buf))

	log.Debug("hidden")
	log.Info("settled", slog.String("order_id", "order_1"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "settled", rec["msg"])
	assert.Equal(t, "donations", rec["service"])
	assert.Equal(t, "order_1", rec["order_id"])
}

func TestDevelopmentLogsText(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithEnvironment("development", ""), logger.WithOutput(&buf))

	log.Debug("visible")
	assert.True(t, strings.Contains(buf.String(), "msg=visible"))
	assert.True(t, strings.Contains(buf.String(), "env=development"))
}
