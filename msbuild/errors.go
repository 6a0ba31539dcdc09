package msbuild

import "fmt"

// MSBuild error codes reported by the evaluator.
const (
	// CodeProjectLoadFailed is reported when a project file is missing or is not valid XML.
	CodeProjectLoadFailed = "MSB4025"
	// CodeImportNotFound is reported when an imported project does not exist.
	CodeImportNotFound = "MSB4019"
	// CodeImportInvalid is reported when an imported project is not valid.
	CodeImportInvalid = "MSB4024"
	// CodeUnexpectedRoot is reported when the root element is not <Project>.
	CodeUnexpectedRoot = "MSB4068"
	// CodeInvalidCondition is reported when a Condition attribute cannot be parsed.
	CodeInvalidCondition = "MSB4092"
)

// EvaluationError describes why a project could not be evaluated.
type EvaluationError struct {
	// Code is the MSBuild error code (e.g. MSB4025)
	Code string

	// File is the file containing the problem, which may be an import
	File string

	// Line and Column locate the problem, zero when unknown
	Line   int
	Column int

	// Message describes what went wrong
	Message string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface
func (e *EvaluationError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s(%d,%d): error %s: %s", e.File, e.Line, e.Column, e.Code, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s(%d): error %s: %s", e.File, e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: error %s: %s", e.File, e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *EvaluationError) Unwrap() error {
	return e.Err
}
