package pipeline

import "fmt"

// Run status values. A run is terminal once it reaches success, failed,
// or canceled.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Step status values.
const (
	StepSuccess = "success"
	StepFailure = "failure"
	StepSkipped = "skipped"
)

// Run is the persisted state of a single pipeline execution.
type Run struct {
	Number    int          `json:"number"`
	Version   string       `json:"version"`
	Commit    string       `json:"commit,omitempty"`
	Status    string       `json:"status"`
	Steps     []StepResult `json:"steps"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
}

// StepResult records the outcome of one pipeline step.
type StepResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Output   string `json:"output,omitempty"`
	Duration string `json:"duration"`
}

// Version derives the artifact version string for a run number. Run numbers
// are strictly increasing, so versions never collide in the artifact store.
func Version(number int) string {
	return fmt.Sprintf("0.0.%d", number)
}
