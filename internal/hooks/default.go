package hooks

import (
	"context"
	"path/filepath"
	"strings"
)

// promptKeys are the embedded metadata keywords checked for a prompt, in
// order of preference. Different generation tools write different keys.
var promptKeys = []string{"prompt", "parameters", "workflow", "Comment"}

// missingFilePlaceholder marks prompt values that reference sidecar files
// the producing tool failed to resolve.
const missingFilePlaceholder = "[file not found:"

// DefaultExtractor produces baseline metadata for any image regardless of
// source: the display string from the file stem and the prompt from embedded
// PNG text chunks. The underscore name puts it at the front of the chain so
// source-specific extractors can override its values.
type DefaultExtractor struct{}

// NewDefaultExtractor returns the baseline extractor.
func NewDefaultExtractor() *DefaultExtractor { return &DefaultExtractor{} }

func (e *DefaultExtractor) Name() string { return "_default" }

func (e *DefaultExtractor) Extract(ctx context.Context, req Request) (map[string]string, error) {
	fields := make(map[string]string, 2)

	base := filepath.Base(req.ImagePath)
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
		fields["char_str"] = stem
	}

	if strings.EqualFold(filepath.Ext(base), ".png") {
		// Prompt recovery is best effort: a truncated or mislabeled file
		// still gets its stem registered.
		texts, err := pngTextChunks(req.ImagePath)
		if err != nil {
			return fields, nil
		}
		for _, key := range promptKeys {
			value := strings.TrimSpace(texts[key])
			if value == "" || strings.HasPrefix(value, missingFilePlaceholder) {
				continue
			}
			fields["prompt"] = value
			break
		}
	}

	return fields, nil
}
