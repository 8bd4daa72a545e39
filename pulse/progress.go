// Package pulse reports the progress of long-running analysis work.
package pulse

// ProgressEmitter defines the interface for emitting progress updates
// during long-running operations. Round scheduling reports through it;
// the CLI chooses a terminal or JSON implementation.
type ProgressEmitter interface {
	// EmitStage announces the start of a processing stage
	EmitStage(stage string, message string)

	// EmitProgress announces batch progress with count and optional metadata.
	// metadata["type"] names what was counted.
	EmitProgress(count int, metadata map[string]interface{})

	// EmitComplete announces successful completion with summary
	EmitComplete(summary map[string]interface{})

	// EmitError announces an error during processing
	EmitError(stage string, err error)

	// EmitInfo emits general informational message
	EmitInfo(message string)
}

// ProgressEvent represents a structured JSON progress event
type ProgressEvent struct {
	Type      string                 `json:"type"` // "stage", "progress", "complete", "error", "info"
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NopEmitter discards all progress.
type NopEmitter struct{}

func (NopEmitter) EmitStage(string, string)                 {}
func (NopEmitter) EmitProgress(int, map[string]interface{}) {}
func (NopEmitter) EmitComplete(map[string]interface{})      {}
func (NopEmitter) EmitError(string, error)                  {}
func (NopEmitter) EmitInfo(string)                          {}
