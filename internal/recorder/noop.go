package recorder

import "github.com/bantoinese83/Portfolio-Watchdog/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *Run) error                                            { return nil }
func (n *NoopRecorder) RecordClassification(_ string, _ model.ClassificationResult) error { return nil }
func (n *NoopRecorder) RecordFailure(_, _ string, _ error) error                          { return nil }
func (n *NoopRecorder) Close() error                                                      { return nil }

func (n *NoopRecorder) History(_ string, _ int) ([]model.ClassificationResult, error) {
	return nil, nil
}
