// Package workflow defines the claim preparation steps and the rules for
// moving a claim pack between them.
package workflow

import (
	"errors"
	"fmt"

	"taxengine/internal/model"
)

// Step keys
const (
	StepScanCT600   = "scan-ct600"
	StepExtracting  = "extracting"
	StepReviewInfo  = "review-info"
	StepAdjustments = "adjustments"
	StepFinalReview = "final-review"
	StepDocuSign    = "docusign"
	StepSubmission  = "submission"
)

var (
	ErrUnknownStep  = errors.New("unknown workflow step")
	ErrBackwards    = errors.New("workflow cannot move backwards")
	ErrSkippedStep  = errors.New("workflow steps cannot be skipped")
	ErrJobCompleted = errors.New("step is completed by a processing job")
)

// Step is one stage of the claim wizard. Stage and PeriodStatus are the
// minimum claim stage and period status a claim holds once it reaches the step.
// A non-empty Job means only that job kind may move the claim past the step.
type Step struct {
	Key          string             `json:"key"`
	Label        string             `json:"label"`
	Stage        model.ClaimStage   `json:"stage"`
	PeriodStatus model.PeriodStatus `json:"periodStatus"`
	Job          string             `json:"job,omitempty"`
}

var steps = []Step{
	{Key: StepScanCT600, Label: "Scan CT600", Stage: model.StageUpload, PeriodStatus: model.PeriodInProgress},
	{Key: StepExtracting, Label: "Extracting", Stage: model.StageScanExtract, PeriodStatus: model.PeriodInProgress, Job: model.JobCT600Extraction},
	{Key: StepReviewInfo, Label: "Review information", Stage: model.StageBuildCT600, PeriodStatus: model.PeriodInProgress},
	{Key: StepAdjustments, Label: "Adjustments", Stage: model.StageBuildCT600, PeriodStatus: model.PeriodInProgress},
	{Key: StepFinalReview, Label: "Final review", Stage: model.StageReview, PeriodStatus: model.PeriodProofing, Job: model.JobHMRCValidation},
	{Key: StepDocuSign, Label: "E-signature", Stage: model.StageReview, PeriodStatus: model.PeriodSigned},
	{Key: StepSubmission, Label: "HMRC submission", Stage: model.StageSubmit, PeriodStatus: model.PeriodIssued},
}

// Steps returns the workflow in order
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// First is the step every new claim pack starts at
func First() Step { return steps[0] }

// Index returns the position of key, or -1
func Index(key string) int {
	for i, s := range steps {
		if s.Key == key {
			return i
		}
	}
	return -1
}

// Lookup finds a step by key
func Lookup(key string) (Step, bool) {
	if i := Index(key); i >= 0 {
		return steps[i], true
	}
	return Step{}, false
}

// StepForJob returns the step a job kind runs in
func StepForJob(kind string) (Step, bool) {
	for _, s := range steps {
		if s.Job == kind {
			return s, true
		}
	}
	return Step{}, false
}

// Progress is the percentage of the workflow completed at key
func Progress(key string) int {
	i := Index(key)
	if i < 0 {
		return 0
	}
	return i * 100 / (len(steps) - 1)
}

// CanAdvance checks a user-driven move. Staying on the same step is allowed.
func CanAdvance(from, to string) error {
	if err := checkMove(from, to); err != nil {
		return err
	}
	if from != to && steps[Index(from)].Job != "" {
		return fmt.Errorf("%w: %s", ErrJobCompleted, from)
	}
	return nil
}

// CanAdvanceByJob checks a move made when a job of kind finishes
func CanAdvanceByJob(kind, from, to string) error {
	if err := checkMove(from, to); err != nil {
		return err
	}
	if from != to && steps[Index(from)].Job != kind {
		return fmt.Errorf("%w: %s does not complete %s", ErrUnknownStep, kind, from)
	}
	return nil
}

func checkMove(from, to string) error {
	fi, ti := Index(from), Index(to)
	if fi < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownStep, from)
	}
	if ti < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownStep, to)
	}
	switch {
	case ti < fi:
		return ErrBackwards
	case ti > fi+1:
		return ErrSkippedStep
	}
	return nil
}

// Next returns the step after key
func Next(key string) (Step, bool) {
	i := Index(key)
	if i < 0 || i+1 >= len(steps) {
		return Step{}, false
	}
	return steps[i+1], true
}

// StepState values
const (
	StateComplete = "complete"
	StateCurrent  = "current"
	StateUpcoming = "upcoming"
)

// StepView is a step annotated for display relative to the current step
type StepView struct {
	Step
	State string `json:"state"`
}

// Describe annotates every step relative to current
func Describe(current string) []StepView {
	ci := Index(current)
	out := make([]StepView, 0, len(steps))
	for i, s := range steps {
		state := StateUpcoming
		switch {
		case i < ci:
			state = StateComplete
		case i == ci:
			state = StateCurrent
		}
		out = append(out, StepView{Step: s, State: state})
	}
	return out
}
