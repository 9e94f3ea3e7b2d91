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

package client

import (
	"context"
	"fmt"

	"github.com/fhir-sigs/fpath/pkg/fhir"
)

const validateCodePath = "ValueSet/$validate-code"

// ValidateCode checks whether a coded value is a member of the value set
// identified by valueSetURL. Each of the three coded shapes maps to the
// corresponding $validate-code input parameter, so one request covers the
// whole value regardless of shape.
func (c *Client) ValidateCode(ctx context.Context, valueSetURL string, coded fhir.Coded) (bool, error) {
	params := []fhir.Parameter{
		{Name: "url", ValueURI: &valueSetURL},
	}

	switch coded.Shape {
	case fhir.CodedShapeCode:
		code := coded.Code
		params = append(params, fhir.Parameter{Name: "code", ValueCode: &code})
	case fhir.CodedShapeCoding:
		coding := coded.Coding
		params = append(params, fhir.Parameter{Name: "coding", ValueCoding: &coding})
	case fhir.CodedShapeConcept:
		concept := coded.Concept
		params = append(params, fhir.Parameter{Name: "codeableConcept", ValueCodeableConcept: &concept})
	default:
		return false, fmt.Errorf("unknown coded shape %d", coded.Shape)
	}

	out, err := c.Operation(ctx, validateCodePath, fhir.NewParameters(params...))
	if err != nil {
		return false, err
	}

	result, ok := out.Bool("result")
	if !ok {
		return false, fmt.Errorf("validate-code response for %q carries no result parameter", coded.Key())
	}
	return result, nil
}
