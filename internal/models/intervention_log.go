package models

import "time"

// InterventionOutcome is the decision taken on published content after
// evaluating its comment health.
type InterventionOutcome string

const (
	OutcomeProtected          InterventionOutcome = "protected"
	OutcomeEnhancedMonitoring InterventionOutcome = "enhanced_monitoring"
	OutcomeRemoved            InterventionOutcome = "removed"
)

// InterventionLog is one evaluation snapshot of a piece of published
// content's comment health. One row is persisted per evaluation regardless
// of outcome, for auditability.
type InterventionLog struct {
	ID          string `json:"id" badgerhold:"key"`
	ContentType string `json:"content_type" badgerhold:"index"`
	ContentID   string `json:"content_id" badgerhold:"index"`
	Signal      string `json:"signal"` // What triggered the evaluation

	TotalComments        int     `json:"total_comments"`
	CompliantComments    int     `json:"compliant_comments"`
	NonCompliantComments int     `json:"non_compliant_comments"`
	Ratio                float64 `json:"ratio"`
	ComplaintCount       int     `json:"complaint_count"`

	Outcome   InterventionOutcome `json:"outcome"`
	Reason    string              `json:"reason"`
	CreatedAt time.Time           `json:"created_at" badgerhold:"index"`
}

// CivilDiscourseRatio computes the compliant fraction for a comment
// population. An empty population is vacuously healthy (1.0).
func CivilDiscourseRatio(total, failed int) float64 {
	if total <= 0 {
		return 1.0
	}
	return float64(total-failed) / float64(total)
}
