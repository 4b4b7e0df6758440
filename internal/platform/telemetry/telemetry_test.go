// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/todos/internal/platform/telemetry"
)

/*
TestSetup_Disabled returns inert providers when no endpoint is configured.
*/
func TestSetup_Disabled(t *testing.T) {
	providers, err := telemetry.Setup(context.Background(), telemetry.Config{ServiceName: "todos-api"})
	require.NoError(t, err)

	assert.False(t, providers.Enabled())
	assert.Nil(t, providers.LogHandler)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

/*
TestNewLogger_Bridge copies records to the bridge and respects the level.
*/
func TestNewLogger_Bridge(t *testing.T) {
	var stdout, bridged bytes.Buffer
	bridge := slog.NewJSONHandler(&bridged, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger, closer := telemetry.NewLogger(&stdout, telemetry.LogOptions{
		Level:  slog.LevelInfo,
		Bridge: bridge,
	})
	t.Cleanup(func() { _ = closer.Close() })

	logger.With(slog.String("app", "todos-api")).Info("todo_created", slog.String("todo_id", "t1"))
	logger.Debug("hidden")

	for _, buffer := range []*bytes.Buffer{&stdout, &bridged} {
		var record map[string]any
		require.NoError(t, json.Unmarshal(buffer.Bytes(), &record))
		assert.Equal(t, "todo_created", record["msg"])
		assert.Equal(t, "todos-api", record["app"])
		assert.Equal(t, "t1", record["todo_id"])
	}
}

/*
TestNewLogger_File writes the same records to the rotated file.
*/
func TestNewLogger_File(t *testing.T) {
	var stdout bytes.Buffer
	path := filepath.Join(t.TempDir(), "api.log")

	logger, closer := telemetry.NewLogger(&stdout, telemetry.LogOptions{
		Level:    slog.LevelInfo,
		FilePath: path,
	})

	logger.Info("server_started")
	require.NoError(t, closer.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(contents))
}
