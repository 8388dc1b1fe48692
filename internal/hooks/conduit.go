package hooks

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// charStrFile is the sidecar every conduit generation type writes.
const charStrFile = "CharStr.txt"

// conduitPlugin reads the sidecar files one generation type produces.
type conduitPlugin struct {
	promptFile string
}

// generationPlugins routes conduit generation types to their sidecar layout.
var generationPlugins = map[string]conduitPlugin{
	"normal":    {promptFile: "metadata.txt"},
	"scene_gen": {promptFile: "STMetaDataOut.txt"},
}

// ConduitExtractor reads the sidecar files the conduit tool writes next to
// each generated image. It runs for every registration and routes on what
// the folder actually contains, so images inside a conduit output folder
// get sidecar enrichment no matter which detector spotted them. The
// generation type, when reported, selects which sidecar carries the prompt;
// unknown or missing types fall back to trying every known layout.
type ConduitExtractor struct{}

// NewConduitExtractor returns the conduit sidecar extractor.
func NewConduitExtractor() *ConduitExtractor { return &ConduitExtractor{} }

func (e *ConduitExtractor) Name() string { return "conduit" }

func (e *ConduitExtractor) Extract(ctx context.Context, req Request) (map[string]string, error) {
	dir := filepath.Dir(req.ImagePath)
	fields := make(map[string]string, 2)

	if char, err := readSidecar(dir, charStrFile); err == nil {
		if cleaned := cleanCharStr(char); cleaned != "" {
			fields["char_str"] = cleaned
		}
	}

	genType := strings.TrimSpace(req.GenerationType)
	if plugin, known := generationPlugins[genType]; known {
		prompt, err := readSidecar(dir, plugin.promptFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fields, err
		}
		if prompt != "" {
			fields["prompt"] = prompt
		}
	} else {
		// Unknown or unreported generation type: try each known layout
		// for a prompt, first hit wins.
		for _, name := range pluginNames() {
			prompt, err := readSidecar(dir, generationPlugins[name].promptFile)
			if err == nil && prompt != "" {
				fields["prompt"] = prompt
				break
			}
		}
	}

	// No sidecars at all means this is not a conduit output folder.
	if len(fields) == 0 {
		return nil, nil
	}

	if fields["char_str"] == "" {
		if inferred := inferCharStr(fields["prompt"]); inferred != "" {
			fields["char_str"] = inferred
		}
	}
	return fields, nil
}

// cleanCharStr discards the placeholder the producing tool writes when it
// could not resolve the sidecar, so a prompt-inferred label can take over.
func cleanCharStr(value string) string {
	trimmed := strings.TrimSpace(value)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "[file not found:") || strings.HasPrefix(lower, "file not found:") {
		return ""
	}
	return trimmed
}

func pluginNames() []string {
	names := make([]string, 0, len(generationPlugins))
	for name := range generationPlugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readSidecar(dir, name string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// inferCharStr guesses a display string from a prompt: the first
// comma-separated token that is not an embedding reference.
func inferCharStr(prompt string) string {
	for _, token := range strings.Split(prompt, ",") {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" || strings.HasPrefix(trimmed, "embedding:") {
			continue
		}
		return trimmed
	}
	return ""
}
