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

import "strings"

// CodedShape tags the accepted shapes of a coded value handed to a
// membership check: a bare code string, a single coding, or a codeable
// concept carrying a list of codings.
type CodedShape int

const (
	CodedShapeCode CodedShape = iota
	CodedShapeCoding
	CodedShapeConcept
)

// Coded is the explicit tagged variant for a coded value. Exactly one of
// the shape-specific fields is meaningful, selected by Shape.
type Coded struct {
	Shape   CodedShape
	Code    string
	Coding  Coding
	Concept CodeableConcept
}

// Key returns the canonical identity of the coded value, independent of
// which shape carried it: "code" for bare codes, "system|code" for
// codings, and a comma-joined list of "system|code" pairs for concepts.
func (c Coded) Key() string {
	switch c.Shape {
	case CodedShapeCode:
		return c.Code
	case CodedShapeCoding:
		return c.Coding.Key()
	case CodedShapeConcept:
		keys := make([]string, 0, len(c.Concept.Coding))
		for _, coding := range c.Concept.Coding {
			keys = append(keys, coding.Key())
		}
		return strings.Join(keys, ",")
	}
	return ""
}

// CodedFromValue classifies a raw evaluator value into one of the coded
// shapes. It returns false when the value matches none of them, in which
// case the caller must skip the value rather than queue a call for it.
func CodedFromValue(v any) (Coded, bool) {
	switch val := v.(type) {
	case string:
		if val == "" {
			return Coded{}, false
		}
		return Coded{Shape: CodedShapeCode, Code: val}, true
	case map[string]any:
		if coding, ok := codingFromMap(val); ok {
			return Coded{Shape: CodedShapeCoding, Coding: coding}, true
		}
		if concept, ok := conceptFromMap(val); ok {
			return Coded{Shape: CodedShapeConcept, Concept: concept}, true
		}
	}
	return Coded{}, false
}

// codingFromMap extracts a Coding from a JSON object carrying a "code"
// field. Objects holding a "coding" list are concepts, not codings.
func codingFromMap(m map[string]any) (Coding, bool) {
	code, ok := m["code"].(string)
	if !ok || code == "" {
		return Coding{}, false
	}
	coding := Coding{Code: code}
	if system, ok := m["system"].(string); ok {
		coding.System = system
	}
	if display, ok := m["display"].(string); ok {
		coding.Display = display
	}
	return coding, true
}

// conceptFromMap extracts a CodeableConcept from a JSON object carrying a
// "coding" list. Entries that are not valid codings are dropped; a concept
// with no usable codings is rejected.
func conceptFromMap(m map[string]any) (CodeableConcept, bool) {
	rawList, ok := m["coding"].([]any)
	if !ok {
		return CodeableConcept{}, false
	}
	concept := CodeableConcept{}
	if text, ok := m["text"].(string); ok {
		concept.Text = text
	}
	for _, raw := range rawList {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if coding, ok := codingFromMap(entry); ok {
			concept.Coding = append(concept.Coding, coding)
		}
	}
	if len(concept.Coding) == 0 {
		return CodeableConcept{}, false
	}
	return concept, true
}

// ReferenceFromValue extracts a literal reference string from a raw
// evaluator value: either a bare string or a Reference object whose
// "reference" field holds the target.
func ReferenceFromValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case map[string]any:
		ref, ok := val["reference"].(string)
		return ref, ok && ref != ""
	}
	return "", false
}
