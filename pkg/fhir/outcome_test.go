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
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorfWrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Errorf(IssueCodeProcessing, cause, "external call %q failed", "sys|M - VS1")

	assert.Equal(t, `[fatal/processing] external call "sys|M - VS1" failed`, err.Error())
	assert.True(t, errors.Is(err, cause))

	outcome := AsOutcome(err)
	require.Len(t, outcome.Issue, 1)
	assert.Equal(t, "OperationOutcome", outcome.ResourceType)
	assert.Equal(t, SeverityFatal, outcome.Issue[0].Severity)
	assert.Equal(t, IssueCodeProcessing, outcome.Issue[0].Code)
}

func TestErrorfSurvivesWrapping(t *testing.T) {
	inner := Errorf(IssueCodeTimeout, nil, "terminology server timed out")
	wrapped := fmt.Errorf("evaluating expression: %w", inner)

	outcome := AsOutcome(wrapped)
	require.Len(t, outcome.Issue, 1)
	assert.Equal(t, IssueCodeTimeout, outcome.Issue[0].Code)
}

func TestAsOutcomeFallback(t *testing.T) {
	assert.Nil(t, AsOutcome(nil))

	outcome := AsOutcome(errors.New("something unstructured"))
	require.Len(t, outcome.Issue, 1)
	assert.Equal(t, SeverityFatal, outcome.Issue[0].Severity)
	assert.Equal(t, IssueCodeException, outcome.Issue[0].Code)
	assert.Equal(t, "something unstructured", outcome.Issue[0].Diagnostics)
}

func TestOutcomeSerialization(t *testing.T) {
	outcome := NewOperationOutcome(
		Issue{
			Severity:    SeverityFatal,
			Code:        IssueCodeProcessing,
			Diagnostics: `external call "http://snomed.info/sct|87915002 - http://example.org/ValueSet/marital-status" failed: connection refused`,
		},
		Issue{
			Severity:    SeverityWarning,
			Code:        IssueCodeNotFound,
			Diagnostics: "Patient/pat1 does not exist on the server",
		},
	)

	data, err := json.MarshalIndent(outcome, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "operation_outcome", data)
}
