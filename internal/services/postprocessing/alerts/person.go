package alerts

import (
	"fmt"

	"github.com/samber/lo"

	"smartcamera-hub/internal/models"
)

// DefaultPersonThreshold is exclusive: a confidence of exactly 0.8 does not fire
const DefaultPersonThreshold = 0.8

// PersonConfidenceRule fires when any detection is a person above Threshold
type PersonConfidenceRule struct {
	Threshold float64
}

func (r PersonConfidenceRule) Name() string { return "person_confidence" }

func (r PersonConfidenceRule) Check(batch *models.DetectionBatch) *Draft {
	hit := lo.SomeBy(batch.Detections, func(d models.Detection) bool {
		return d.ClassLabel == models.ClassPerson && d.Confidence > r.Threshold
	})
	if !hit {
		return nil
	}
	// the count is the batch's reported total, not the number of persons
	return &Draft{
		Type:     models.AlertTypeHighConfidencePerson,
		Message:  fmt.Sprintf("Detected %d objects with high confidence", batch.DetectionCount),
		Severity: models.AlertSeverityMedium,
	}
}
