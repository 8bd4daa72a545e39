package pulse

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := NewJSONEmitterTo(&buf)
	e.now = func() time.Time { return time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC) }

	e.EmitStage("round 2", "propagating")
	e.EmitProgress(500, map[string]interface{}{"type": "persons", "round": 2})
	e.EmitError("round 3", errors.New("boom"))
	e.EmitComplete(map[string]interface{}{"job_id": 4})
	e.EmitInfo("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)

	var ev ProgressEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "progress", ev.Type)
	assert.Equal(t, "2024-06-15T08:00:00Z", ev.Timestamp)
	assert.Equal(t, float64(500), ev.Data["count"])
	assert.Equal(t, "persons", ev.Data["type"])

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &ev))
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "boom", ev.Data["error"])
}

func TestEmittersSatisfyInterface(t *testing.T) {
	var _ ProgressEmitter = NewCLIEmitter(0)
	var _ ProgressEmitter = NewJSONEmitter()
	var _ ProgressEmitter = NopEmitter{}
}
