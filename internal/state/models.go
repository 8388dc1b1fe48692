package state

import "pictor/internal/registry"

// Event types carried by broadcast messages.
const (
	EventFullState               = "full_state"
	EventImageAdded              = "image_added"
	EventImageRemoved            = "image_removed"
	EventImagesUpdated           = "images_updated"
	EventTemplatesUpdated        = "templates_updated"
	EventTemplateChanged         = "template_changed"
	EventSettingsUpdated         = "settings_updated"
	EventGenerationStarted       = "generation_started"
	EventGenerationProgress      = "generation_progress"
	EventGenerationComplete      = "generation_complete"
	EventGenerationBatchComplete = "generation_batch_complete"
	EventGenerationCancelled     = "generation_cancelled"
)

// Message is one broadcast to observers. Every message carries the full
// state snapshot alongside the event payload.
type Message struct {
	Type  string   `json:"type"`
	Data  any      `json:"data,omitempty"`
	State AppState `json:"state"`
}

// GenerationState describes the in-flight generation batch, if any.
// QueuedJobs holds the job ids still awaiting completion, CurrentJob the
// one most recently reporting progress. Progress is a 0-100 percentage
// for the current job.
type GenerationState struct {
	Active     bool     `json:"active"`
	QueuedJobs []string `json:"queued_jobs"`
	CurrentJob string   `json:"current_job"`
	Progress   int      `json:"progress"`
	Completed  int      `json:"completed"`
	Total      int      `json:"total"`
}

// AppState is the full application snapshot observers receive.
type AppState struct {
	Templates       []string                 `json:"templates"`
	CurrentTemplate string                   `json:"current_template"`
	Settings        map[string]string        `json:"settings"`
	Images          []*registry.Registration `json:"images"`
	TotalImages     int                      `json:"total_images"`
	Generation      GenerationState          `json:"generation"`
}
