package subscribers

import "encoding/json"

// busEvent is the envelope published on the systems bus. The producing
// tool appears either in the source block or, in older payloads, inside
// data itself.
type busEvent struct {
	EventType string `json:"event_type"`
	Source    struct {
		Tool string `json:"tool"`
	} `json:"source"`
	Data operationData `json:"data"`
}

type operationData struct {
	Tool        string            `json:"tool"`
	OperationID string            `json:"operation_id"`
	Outputs     []operationOutput `json:"outputs"`
	Metadata    struct {
		OutputFolder  string `json:"output_folder"`
		CallerContext struct {
			GenerationType string `json:"generation_type"`
		} `json:"caller_context"`
	} `json:"metadata"`
}

type operationOutput struct {
	FileType string `json:"file_type"`
	TagName  string `json:"tag_name"`
	FilePath string `json:"file_path"`
}

func parseBusEvent(payload []byte) (*busEvent, error) {
	var event busEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (e *busEvent) tool() string {
	if e.Source.Tool != "" {
		return e.Source.Tool
	}
	return e.Data.Tool
}

// preferredImageTags orders output tags from most to least desirable when
// one operation produced several images.
var preferredImageTags = []string{"CharImg", "FinalImage", "Output"}

// selectPreferredImage picks one image output from an operation's batch:
// the first tag on the priority list that matches, else the first image.
func selectPreferredImage(outputs []operationOutput) (*operationOutput, string) {
	images := make([]operationOutput, 0, len(outputs))
	for _, output := range outputs {
		if output.FileType == "image" {
			images = append(images, output)
		}
	}
	if len(images) == 0 {
		return nil, ""
	}
	for _, tag := range preferredImageTags {
		for i := range images {
			if images[i].TagName == tag {
				return &images[i], tag
			}
		}
	}
	return &images[0], images[0].TagName
}
