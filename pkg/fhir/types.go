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

// Package fhir carries the small slice of the FHIR data model the engine
// needs: codings, references, Parameters and OperationOutcome. Resources
// themselves stay opaque JSON (map[string]any); these types only cover the
// payloads the engine has to build or inspect.
package fhir

import "fmt"

// Coding is a single code drawn from a code system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// Key returns the canonical "system|code" form used in call fingerprints.
// A coding without a system degrades to the bare code.
func (c Coding) Key() string {
	if c.System == "" {
		return c.Code
	}
	return fmt.Sprintf("%s|%s", c.System, c.Code)
}

// CodeableConcept is a list of codings that all represent the same concept.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Parameters is the FHIR Parameters resource, used as the request and
// response body of terminology operations like ValueSet/$validate-code.
type Parameters struct {
	ResourceType string      `json:"resourceType"`
	Parameter    []Parameter `json:"parameter,omitempty"`
}

// Parameter is one entry of a Parameters resource. Only the value[x]
// choices the engine exchanges with a terminology server are modeled.
type Parameter struct {
	Name                 string           `json:"name"`
	ValueString          *string          `json:"valueString,omitempty"`
	ValueBoolean         *bool            `json:"valueBoolean,omitempty"`
	ValueURI             *string          `json:"valueUri,omitempty"`
	ValueCode            *string          `json:"valueCode,omitempty"`
	ValueCoding          *Coding          `json:"valueCoding,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
}

// NewParameters builds a Parameters resource from the given entries.
func NewParameters(params ...Parameter) *Parameters {
	return &Parameters{
		ResourceType: "Parameters",
		Parameter:    params,
	}
}

// Bool returns the valueBoolean of the first parameter with the given name.
func (p *Parameters) Bool(name string) (bool, bool) {
	for _, param := range p.Parameter {
		if param.Name == name && param.ValueBoolean != nil {
			return *param.ValueBoolean, true
		}
	}
	return false, false
}

// String returns the valueString of the first parameter with the given name.
func (p *Parameters) String(name string) (string, bool) {
	for _, param := range p.Parameter {
		if param.Name == name && param.ValueString != nil {
			return *param.ValueString, true
		}
	}
	return "", false
}
