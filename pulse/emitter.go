package pulse

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pterm/pterm"

	"github.com/werelate/dqa/sym"
)

// CLIEmitter outputs pretty-printed progress to terminal using pterm
type CLIEmitter struct {
	verbosity int
}

// NewCLIEmitter creates a CLI progress emitter for terminal output
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

// EmitStage prints a stage announcement to terminal
func (e *CLIEmitter) EmitStage(stage string, message string) {
	pterm.Printf("%s %s: %s\n", sym.Pulse, pterm.LightCyan(stage), message)
}

// EmitProgress prints a progress count
func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	itemType, ok := metadata["type"].(string)
	if !ok {
		itemType = "items"
	}
	pterm.Printf("✅ Processed %s %s\n", pterm.Green(fmt.Sprintf("%d", count)), itemType)
	if e.verbosity >= 2 {
		for _, key := range sortedKeys(metadata) {
			if key != "type" {
				pterm.Printf("  %s: %v\n", key, metadata[key])
			}
		}
	}
}

// EmitComplete prints completion summary
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	pterm.Success.Println("Analysis complete!")
	if e.verbosity >= 1 {
		for _, key := range sortedKeys(summary) {
			pterm.Printf("  %s: %v\n", key, summary[key])
		}
	}
}

// EmitError prints an error
func (e *CLIEmitter) EmitError(stage string, err error) {
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

// EmitInfo prints informational message
func (e *CLIEmitter) EmitInfo(message string) {
	if e.verbosity >= 1 {
		pterm.Info.Println(message)
	}
}

// JSONEmitter outputs one JSON event per line
type JSONEmitter struct {
	encoder *json.Encoder
	now     func() time.Time
}

// NewJSONEmitter creates a JSON progress emitter writing to stdout
func NewJSONEmitter() *JSONEmitter {
	return NewJSONEmitterTo(os.Stdout)
}

// NewJSONEmitterTo creates a JSON progress emitter writing to w
func NewJSONEmitterTo(w io.Writer) *JSONEmitter {
	return &JSONEmitter{
		encoder: json.NewEncoder(w),
		now:     time.Now,
	}
}

func (e *JSONEmitter) emit(eventType string, data map[string]interface{}) {
	e.encoder.Encode(ProgressEvent{
		Type:      eventType,
		Timestamp: e.now().UTC().Format(time.RFC3339),
		Data:      data,
	})
}

// EmitStage emits a stage event as JSON
func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{
		"stage":   stage,
		"message": message,
	})
}

// EmitProgress emits a progress event as JSON
func (e *JSONEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{
		"count": count,
	}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

// EmitComplete emits a completion event as JSON
func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

// EmitError emits an error event as JSON
func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}

// EmitInfo emits an info event as JSON
func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{
		"message": message,
	})
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
