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

package adapter

import (
	"context"
	"fmt"

	"github.com/fhir-sigs/fpath/pkg/client"
	"github.com/fhir-sigs/fpath/pkg/fhir"
	"github.com/fhir-sigs/fpath/pkg/runtime"
)

// Terminology intercepts memberOf(valueSet): it checks whether a coded
// value belongs to a value set. A call accepts three target shapes - bare
// code, coding, codeable concept - and each yields one fingerprint and a
// single $validate-code request with the shape-appropriate encoding.
type Terminology struct {
	client *client.Client
}

// NewTerminology creates the value-set membership adapter.
func NewTerminology(c *client.Client) *Terminology {
	return &Terminology{client: c}
}

func (t *Terminology) Name() string {
	return "memberOf"
}

func (t *Terminology) Arity() int {
	return 1
}

// Fingerprint combines the coded value's canonical key with the value-set
// identifier: "CODE - VS", "SYS|CODE - VS", or a comma-joined list of
// pairs for concepts. Malformed targets or a missing value-set argument
// produce no fingerprint.
func (t *Terminology) Fingerprint(call runtime.Call) (string, bool) {
	coded, ok := fhir.CodedFromValue(call.Target)
	if !ok {
		return "", false
	}
	valueSet, ok := valueSetArg(call)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s - %s", coded.Key(), valueSet), true
}

// Resolve issues the membership check and returns the boolean outcome.
func (t *Terminology) Resolve(ctx context.Context, call runtime.Call) (any, error) {
	coded, ok := fhir.CodedFromValue(call.Target)
	if !ok {
		return nil, nil
	}
	valueSet, ok := valueSetArg(call)
	if !ok {
		return nil, nil
	}
	return t.client.ValidateCode(ctx, valueSet, coded)
}

// valueSetArg extracts the value-set identifier literal.
func valueSetArg(call runtime.Call) (string, bool) {
	if len(call.Args) != 1 {
		return "", false
	}
	valueSet, ok := call.Args[0].(string)
	return valueSet, ok && valueSet != ""
}
