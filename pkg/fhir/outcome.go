// Copyright 2025 The fpath Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fhir

import (
	"errors"
	"fmt"
	"strings"
)

// Issue severities, as defined by the OperationOutcome value set.
const (
	SeverityFatal   = "fatal"
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue codes the engine emits.
const (
	IssueCodeInvalid    = "invalid"
	IssueCodeProcessing = "processing"
	IssueCodeTimeout    = "timeout"
	IssueCodeException  = "exception"
	IssueCodeNotFound   = "not-found"
)

// Issue is a single OperationOutcome issue.
type Issue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// OperationOutcome is the FHIR resource used to report errors and
// warnings back to the caller.
type OperationOutcome struct {
	ResourceType string  `json:"resourceType"`
	Issue        []Issue `json:"issue"`
}

// NewOperationOutcome builds an OperationOutcome from the given issues.
func NewOperationOutcome(issues ...Issue) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue:        issues,
	}
}

// OutcomeError is an error carrying a structured OperationOutcome. It is
// the caller-facing form of every fatal engine failure.
type OutcomeError struct {
	Outcome *OperationOutcome
	// Err is the underlying cause, preserved for errors.Is/As matching.
	Err error
}

func (e *OutcomeError) Error() string {
	if e.Outcome == nil || len(e.Outcome.Issue) == 0 {
		if e.Err != nil {
			return e.Err.Error()
		}
		return "operation outcome with no issues"
	}
	parts := make([]string, 0, len(e.Outcome.Issue))
	for _, issue := range e.Outcome.Issue {
		parts = append(parts, fmt.Sprintf("[%s/%s] %s", issue.Severity, issue.Code, issue.Diagnostics))
	}
	return strings.Join(parts, "; ")
}

func (e *OutcomeError) Unwrap() error {
	return e.Err
}

// Errorf builds a fatal single-issue OutcomeError wrapping err.
func Errorf(code string, err error, format string, a ...any) *OutcomeError {
	return &OutcomeError{
		Outcome: NewOperationOutcome(Issue{
			Severity:    SeverityFatal,
			Code:        code,
			Diagnostics: fmt.Sprintf(format, a...),
		}),
		Err: err,
	}
}

// AsOutcome extracts the OperationOutcome from an error chain. Errors that
// carry no outcome are wrapped into a generic fatal exception issue so the
// caller always has something structured to render.
func AsOutcome(err error) *OperationOutcome {
	if err == nil {
		return nil
	}
	var oe *OutcomeError
	if errors.As(err, &oe) && oe.Outcome != nil {
		return oe.Outcome
	}
	return NewOperationOutcome(Issue{
		Severity:    SeverityFatal,
		Code:        IssueCodeException,
		Diagnostics: err.Error(),
	})
}
