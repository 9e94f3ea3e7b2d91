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

// Package adapter holds the external-call adapters the engine intercepts:
// reference resolution against a FHIR server and value-set membership
// against a terminology server. Each adapter derives a canonical
// fingerprint from a call's semantic arguments and performs the matching
// out-of-band request.
package adapter

import (
	"context"

	"github.com/fhir-sigs/fpath/pkg/client"
	"github.com/fhir-sigs/fpath/pkg/fhir"
	"github.com/fhir-sigs/fpath/pkg/runtime"
)

// Compile time proof that both adapters satisfy the runtime contract.
var (
	_ runtime.CallAdapter = &Reference{}
	_ runtime.CallAdapter = &Terminology{}
)

// Reference intercepts resolve(): it fetches the resource behind a
// literal reference. The fingerprint is the reference string itself, so
// every occurrence of the same reference across the expression collapses
// into one fetch.
type Reference struct {
	client *client.Client
}

// NewReference creates the reference-resolution adapter.
func NewReference(c *client.Client) *Reference {
	return &Reference{client: c}
}

func (r *Reference) Name() string {
	return "resolve"
}

func (r *Reference) Arity() int {
	return 0
}

// Fingerprint accepts a bare reference string or a Reference object and
// returns the literal reference. Anything else is malformed and skipped.
func (r *Reference) Fingerprint(call runtime.Call) (string, bool) {
	return fhir.ReferenceFromValue(call.Target)
}

// Resolve fetches the referenced resource. A missing resource (404/410)
// resolves to nothing rather than failing; transport and decode errors
// propagate and abort the evaluation.
func (r *Reference) Resolve(ctx context.Context, call runtime.Call) (any, error) {
	reference, ok := fhir.ReferenceFromValue(call.Target)
	if !ok {
		// Fingerprint gates malformed calls; reaching this is a bug.
		return nil, nil
	}
	resource, err := r.client.Read(ctx, reference)
	if client.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resource, nil
}
