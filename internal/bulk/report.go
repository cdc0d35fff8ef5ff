package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of one batch item. Exactly one Result exists per
// input item.
type Result struct {
	ItemID    string    `json:"item_id"`
	Status    string    `json:"status"` // "success" or "error"
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Report aggregates per-item outcomes of a batch, preserving input order.
// Once finalized it no longer changes.
type Report struct {
	BatchID    string
	Operation  string
	Successful []Result
	Failed     []Result
	ordered    []Result
	StartTime  time.Time
	EndTime    time.Time
	finalized  bool
}

// NewReport starts a report for the named operation.
func NewReport(operation string) *Report {
	return &Report{
		BatchID:   uuid.NewString(),
		Operation: operation,
		StartTime: time.Now(),
	}
}

// AddSuccess records a successful item with its payload.
func (r *Report) AddSuccess(itemID string, payload any) {
	if r.finalized {
		return
	}
	res := Result{ItemID: itemID, Status: "success", Result: payload, Timestamp: time.Now()}
	r.Successful = append(r.Successful, res)
	r.ordered = append(r.ordered, res)
}

// AddFailure records a failed item with its error description.
func (r *Report) AddFailure(itemID string, errMsg string) {
	if r.finalized {
		return
	}
	res := Result{ItemID: itemID, Status: "error", Error: errMsg, Timestamp: time.Now()}
	r.Failed = append(r.Failed, res)
	r.ordered = append(r.ordered, res)
}

// Finalize stamps the end time. Further calls are no-ops.
func (r *Report) Finalize() {
	if r.finalized {
		return
	}
	r.EndTime = time.Now()
	r.finalized = true
}

// Total is the number of processed items.
func (r *Report) Total() int {
	return len(r.Successful) + len(r.Failed)
}

// Results returns every item outcome in input order.
func (r *Report) Results() []Result {
	return r.ordered
}

// SuccessRate formats successes over total as a percentage, "0%" for an
// empty batch.
func (r *Report) SuccessRate() string {
	total := r.Total()
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(len(r.Successful))/float64(total)*100)
}

// Duration is the wall time of the batch; zero until finalized.
func (r *Report) Duration() time.Duration {
	if !r.finalized {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// ToMap flattens the report into the shape consumed by the dispatch layer.
func (r *Report) ToMap() map[string]any {
	successful := r.Successful
	if successful == nil {
		successful = []Result{}
	}
	failed := r.Failed
	if failed == nil {
		failed = []Result{}
	}
	return map[string]any{
		"batch_id":         r.BatchID,
		"operation":        r.Operation,
		"total":            r.Total(),
		"successful":       len(r.Successful),
		"failed":           len(r.Failed),
		"duration_seconds": r.Duration().Seconds(),
		"success_rate":     r.SuccessRate(),
		"successful_items": successful,
		"failed_items":     failed,
	}
}

// JSON serializes the report.
func (r *Report) JSON() (string, error) {
	b, err := json.MarshalIndent(r.ToMap(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return string(b), nil
}
