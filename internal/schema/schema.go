// Package schema defines the structured output of a single call analysis and
// its validation rules.
package schema

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Speaker identifies which party a transcript line belongs to.
type Speaker string

// Speaker constants for transcript dialogue lines.
const (
	SpeakerClient  Speaker = "CLIENT"
	SpeakerManager Speaker = "MANAGER"
)

// DialogLine is one turn of the call transcript. Empty text is legal; the
// schema enforces shape, not content quality.
type DialogLine struct {
	Speaker Speaker `json:"speaker" validate:"required,oneof=CLIENT MANAGER"`
	Text    string  `json:"text"`
}

// AnalysisResult is the validated output of analyzing one recorded call.
//
// Optional pointer fields distinguish "unknown/not applicable" (nil) from an
// empty string. The seven checklist booleans feed the scoring rubric;
// IsCommentNegative does not and stays boolean through every transform.
type AnalysisResult struct {
	Transcript []DialogLine `json:"transcript" validate:"dive"`

	CallType   string `json:"call_type" validate:"required"`
	CallResult string `json:"call_result" validate:"required"`
	Comment    string `json:"comment"`

	ManagerName        *string `json:"manager_name"`
	ServiceBookingDate *string `json:"service_booking_date"`
	PartsDiscussed     *string `json:"parts_discussed"`

	ScriptGreeting           bool `json:"script_greeting"`
	ScriptFarewell           bool `json:"script_farewell"`
	CarInfoBodyAsked         bool `json:"car_info_body_asked"`
	CarInfoYearAsked         bool `json:"car_info_year_asked"`
	CarInfoMileageAsked      bool `json:"car_info_mileage_asked"`
	UpsaleDiagnosticsOffered bool `json:"upsale_diagnostics_offered"`
	UpsalePreviousWorkAsked  bool `json:"upsale_previous_work_asked"`

	TopWorksMentioned []string `json:"top_works_mentioned"`

	IsCommentNegative bool `json:"is_comment_negative"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseAnalysisResult decodes and validates a raw analysis payload.
// Unknown fields in the payload are ignored; the external service's schema
// may evolve ahead of ours.
func ParseAnalysisResult(data []byte) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &ParseError{
			Message: "failed to decode analysis payload",
			Cause:   err,
		}
	}

	if err := Validate(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Validate checks an AnalysisResult against the schema's structural rules.
// Returns a *ValidationError naming the offending field(s).
func Validate(result *AnalysisResult) error {
	err := validate.Struct(result)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fieldPath(fe.Namespace()))
		}
		return &ValidationError{Fields: fields}
	}
	return err
}

// fieldPath strips the struct type prefix from a validator namespace,
// e.g. "AnalysisResult.Transcript[1].Speaker" -> "Transcript[1].Speaker".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

// ReportMap converts the result into the loosely-typed mapping consumed by
// the rubric evaluator and the row projector. Optional fields become untyped
// nil so downstream nil checks behave.
func (r *AnalysisResult) ReportMap() map[string]any {
	return map[string]any{
		"transcript":                 r.Transcript,
		"call_type":                  r.CallType,
		"call_result":                r.CallResult,
		"comment":                    r.Comment,
		"manager_name":               optString(r.ManagerName),
		"service_booking_date":       optString(r.ServiceBookingDate),
		"parts_discussed":            optString(r.PartsDiscussed),
		"script_greeting":            r.ScriptGreeting,
		"script_farewell":            r.ScriptFarewell,
		"car_info_body_asked":        r.CarInfoBodyAsked,
		"car_info_year_asked":        r.CarInfoYearAsked,
		"car_info_mileage_asked":     r.CarInfoMileageAsked,
		"upsale_diagnostics_offered": r.UpsaleDiagnosticsOffered,
		"upsale_previous_work_asked": r.UpsalePreviousWorkAsked,
		"top_works_mentioned":        r.TopWorksMentioned,
		"is_comment_negative":        r.IsCommentNegative,
	}
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
