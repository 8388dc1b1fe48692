package state

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"pictor/internal/logging"
	"pictor/internal/registry"
)

// Subscription is one observer's view of the broadcast stream. Messages
// arrive on C until Unsubscribe closes it.
type Subscription struct {
	ID string
	C  <-chan Message

	ch      chan Message
	dropped bool
}

// Broadcaster owns the application state and fans changes out to observers.
type Broadcaster struct {
	mu       sync.Mutex
	state    AppState
	subs     map[string]*Subscription
	buffer   int
	pageSize int
	logger   *slog.Logger
}

// NewBroadcaster returns a broadcaster with the given per-observer channel
// buffer and images page size.
func NewBroadcaster(buffer, pageSize int, logger *slog.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Broadcaster{
		state:    AppState{Settings: map[string]string{}},
		subs:     make(map[string]*Subscription),
		buffer:   buffer,
		pageSize: pageSize,
		logger:   logging.NewComponentLogger(logger, "state"),
	}
}

// Subscribe registers an observer and returns its subscription.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, b.buffer)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch}
	b.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes an observer and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}

// FullState returns a full_state message for a newly attached observer.
func (b *Broadcaster) FullState() Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Message{Type: EventFullState, State: b.snapshotLocked()}
}

// SetTemplates replaces the known template list.
func (b *Broadcaster) SetTemplates(templates []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Templates = append([]string(nil), templates...)
	b.broadcastLocked(EventTemplatesUpdated, b.state.Templates)
}

// SetCurrentTemplate records the selected template.
func (b *Broadcaster) SetCurrentTemplate(template string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.CurrentTemplate = template
	b.broadcastLocked(EventTemplateChanged, template)
}

// SetSettings replaces the current template settings.
func (b *Broadcaster) SetSettings(settings map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Settings = cloneSettings(settings)
	b.broadcastLocked(EventSettingsUpdated, b.state.Settings)
}

// SetImages replaces the latest registration page and total count.
func (b *Broadcaster) SetImages(page []*registry.Registration, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Images = append([]*registry.Registration(nil), page...)
	b.state.TotalImages = total
	b.broadcastLocked(EventImagesUpdated, nil)
}

// ImageAdded prepends a new registration to the page and bumps the total.
func (b *Broadcaster) ImageAdded(reg *registry.Registration) {
	if reg == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	images := make([]*registry.Registration, 0, len(b.state.Images)+1)
	images = append(images, reg)
	images = append(images, b.state.Images...)
	if len(images) > b.pageSize {
		images = images[:b.pageSize]
	}
	b.state.Images = images
	b.state.TotalImages++
	b.broadcastLocked(EventImageAdded, reg)
}

// ImageRemoved drops a registration by image path and decrements the total.
func (b *Broadcaster) ImageRemoved(imagePath string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	images := b.state.Images[:0]
	for _, reg := range b.state.Images {
		if reg.ImagePath != imagePath {
			images = append(images, reg)
		}
	}
	b.state.Images = images
	if b.state.TotalImages > 0 {
		b.state.TotalImages--
	}
	b.broadcastLocked(EventImageRemoved, imagePath)
}

// StartGeneration marks a generation batch in flight. Every job id joins
// the queued set; completions drain it one id at a time.
func (b *Broadcaster) StartGeneration(jobIDs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Generation = GenerationState{
		Active:     true,
		QueuedJobs: append([]string(nil), jobIDs...),
		Total:      len(jobIDs),
	}
	b.broadcastLocked(EventGenerationStarted, b.state.Generation)
}

// SetProgress records the current job and its 0-100 progress.
func (b *Broadcaster) SetProgress(jobID string, progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := &b.state.Generation
	if !gen.Active {
		return
	}
	gen.CurrentJob = jobID
	gen.Progress = progress
	b.broadcastLocked(EventGenerationProgress, *gen)
}

// CompleteGeneration removes jobID from the queued set and counts it as
// done. The final completion emits a batch-complete event and clears the
// active flag; every earlier completion reports batch progress.
func (b *Broadcaster) CompleteGeneration(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := &b.state.Generation
	if !gen.Active {
		return
	}
	for i, queued := range gen.QueuedJobs {
		if queued == jobID {
			gen.QueuedJobs = append(gen.QueuedJobs[:i], gen.QueuedJobs[i+1:]...)
			break
		}
	}
	if gen.CurrentJob == jobID {
		gen.CurrentJob = ""
	}
	gen.Completed++
	if gen.Completed >= gen.Total {
		gen.Active = false
		gen.Progress = 100
		b.broadcastLocked(EventGenerationBatchComplete, *gen)
		return
	}
	b.broadcastLocked(EventGenerationComplete, *gen)
}

// CancelGeneration aborts the in-flight batch.
func (b *Broadcaster) CancelGeneration() {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := &b.state.Generation
	if !gen.Active {
		return
	}
	gen.Active = false
	gen.QueuedJobs = nil
	gen.CurrentJob = ""
	b.broadcastLocked(EventGenerationCancelled, *gen)
}

func (b *Broadcaster) broadcastLocked(eventType string, data any) {
	msg := Message{Type: eventType, Data: data, State: b.snapshotLocked()}
	for _, sub := range b.subs {
		select {
		case sub.ch <- msg:
		default:
			if !sub.dropped {
				sub.dropped = true
				b.logger.Warn("observer buffer full; dropping messages",
					logging.String("subscription_id", sub.ID),
					logging.String(logging.FieldEventType, eventType),
				)
			}
		}
	}
}

func (b *Broadcaster) snapshotLocked() AppState {
	snap := AppState{
		Templates:       append([]string(nil), b.state.Templates...),
		CurrentTemplate: b.state.CurrentTemplate,
		Settings:        cloneSettings(b.state.Settings),
		Images:          append([]*registry.Registration(nil), b.state.Images...),
		TotalImages:     b.state.TotalImages,
		Generation:      b.state.Generation,
	}
	snap.Generation.QueuedJobs = append([]string(nil), b.state.Generation.QueuedJobs...)
	return snap
}

func cloneSettings(settings map[string]string) map[string]string {
	clone := make(map[string]string, len(settings))
	for key, value := range settings {
		clone[key] = value
	}
	return clone
}
