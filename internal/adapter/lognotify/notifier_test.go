package lognotify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Publish(t *testing.T) {
	var buf bytes.Buffer
	n := New(slog.New(slog.NewJSONHandler(&buf, nil)))

	id, err := n.Publish(context.Background(), "aurora.alerts.green", "Green Status Notification", "body")
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "Green Status Notification", line["msg"])
	assert.Equal(t, "aurora.alerts.green", line["topic"])
	assert.Equal(t, id, line["message_id"])
	assert.Equal(t, "body", line["body"])
}
