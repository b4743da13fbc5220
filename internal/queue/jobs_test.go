package queue

import (
	"testing"

	"github.com/hibiken/asynq"
)

func TestAnalyzeTaskRoundTrip(t *testing.T) {
	task, err := NewAnalyzeTask("ds-42")
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TypeAnalyzeDataset {
		t.Errorf("Type() = %q", task.Type())
	}
	p, err := ParseAnalyzePayload(task)
	if err != nil {
		t.Fatal(err)
	}
	if p.DatasetID != "ds-42" {
		t.Errorf("DatasetID = %q", p.DatasetID)
	}
}

func TestParseAnalyzePayloadRejects(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   "{",
		"missing id": `{"dataset_id":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAnalyzePayload(asynq.NewTask(TypeAnalyzeDataset, []byte(body))); err == nil {
				t.Error("expected error")
			}
		})
	}
}
