// Package alerts decides whether a detection batch warrants an alert.
// Evaluation is pure apart from the injected clock and id source.
package alerts

import (
	"time"

	"github.com/google/uuid"

	"smartcamera-hub/internal/models"
)

// Draft is what a rule produces; the policy stamps identity and time on it
type Draft struct {
	Type     string
	Message  string
	Severity models.AlertSeverity
}

// Rule inspects one batch and returns a draft, or nil when it does not fire
type Rule interface {
	Name() string
	Check(batch *models.DetectionBatch) *Draft
}

// Option customizes a Policy
type Option func(*Policy)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

// WithIDs overrides the alert id source (uuid v4 by default)
func WithIDs(next func() string) Option {
	return func(p *Policy) { p.newID = next }
}

// WithRules replaces the rule set
func WithRules(rules ...Rule) Option {
	return func(p *Policy) { p.rules = rules }
}

// Policy evaluates rules in order and returns the first alert produced
type Policy struct {
	rules []Rule
	now   func() time.Time
	newID func() string
}

// NewPolicy returns the default policy: a single high-confidence person rule
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		rules: []Rule{PersonConfidenceRule{Threshold: DefaultPersonThreshold}},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate returns at most one alert for batch. A nil batch, or one that
// reports no detections, never alerts.
func (p *Policy) Evaluate(batch *models.DetectionBatch) *models.Alert {
	if batch == nil || batch.DetectionCount <= 0 {
		return nil
	}
	for _, rule := range p.rules {
		draft := rule.Check(batch)
		if draft == nil {
			continue
		}
		return &models.Alert{
			ID:        p.newID(),
			CameraID:  batch.CameraID,
			Type:      draft.Type,
			Message:   draft.Message,
			Timestamp: p.now().UTC(),
			Severity:  draft.Severity,
		}
	}
	return nil
}

// Rules lists the names of the configured rules
func (p *Policy) Rules() []string {
	names := make([]string, 0, len(p.rules))
	for _, r := range p.rules {
		names = append(names, r.Name())
	}
	return names
}
