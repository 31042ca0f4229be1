// Package scoring computes the rubric score for an analysis report and
// normalizes value representations ahead of row projection.
package scoring

// TotalScoreField is the key injected into every evaluated report.
const TotalScoreField = "total_score"

// DefaultNegativeCommentField is the boolean flag that drives report
// highlighting. It is never coerced to an integer and never scored.
const DefaultNegativeCommentField = "is_comment_negative"

// DefaultChecklistFields are the rubric criteria that contribute to the
// total score. Membership is by name: any other boolean field stays out of
// the score no matter its type.
func DefaultChecklistFields() []string {
	return []string{
		"script_greeting",
		"script_farewell",
		"car_info_body_asked",
		"car_info_year_asked",
		"car_info_mileage_asked",
		"upsale_diagnostics_offered",
		"upsale_previous_work_asked",
	}
}

// Evaluator scores report mappings against a fixed checklist rubric.
type Evaluator struct {
	checklist            map[string]bool
	NegativeCommentField string
}

// NewEvaluator returns an Evaluator for the default rubric.
func NewEvaluator() *Evaluator {
	return NewEvaluatorWithChecklist(DefaultChecklistFields())
}

// NewEvaluatorWithChecklist returns an Evaluator scoring the given field
// names, for rubrics that differ from the default.
func NewEvaluatorWithChecklist(fields []string) *Evaluator {
	checklist := make(map[string]bool, len(fields))
	for _, f := range fields {
		checklist[f] = true
	}
	return &Evaluator{
		checklist:            checklist,
		NegativeCommentField: DefaultNegativeCommentField,
	}
}

// ChecklistSize returns the number of rubric criteria, the upper bound of
// any total score.
func (e *Evaluator) ChecklistSize() int {
	return len(e.checklist)
}

// IsChecklistField reports whether key contributes to the total score.
func (e *Evaluator) IsChecklistField(key string) bool {
	return e.checklist[key]
}

// Evaluate coerces checklist booleans to 0/1 integers, replaces nil values
// with empty strings and injects the total score. The negative-comment flag
// stays a literal boolean. The report is mutated in place and returned.
//
// Evaluate is idempotent: on an already-evaluated report the boolean branch
// no longer fires and the checklist integers re-sum to the same total.
func (e *Evaluator) Evaluate(report map[string]any) map[string]any {
	total := 0
	for key, value := range report {
		if b, ok := value.(bool); ok && e.checklist[key] {
			report[key] = boolToInt(b)
		} else if value == nil {
			report[key] = ""
		}

		if e.checklist[key] {
			if n, ok := report[key].(int); ok {
				total += n
			}
		}
	}

	report[TotalScoreField] = total
	return report
}

// EvaluateAll scores a batch of reports in order.
func (e *Evaluator) EvaluateAll(reports []map[string]any) []map[string]any {
	for _, report := range reports {
		e.Evaluate(report)
	}
	return reports
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
