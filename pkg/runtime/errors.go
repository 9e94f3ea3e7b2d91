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

package runtime

import (
	"errors"
	"fmt"
)

// ErrPassesExhausted indicates that the evaluation still had pending
// external calls after the maximum number of passes. The result is
// deliberately discarded rather than returned as a partial answer.
var ErrPassesExhausted = errors.New("pending work remained after maximum passes")

// IsPassesExhausted reports whether the error chain contains
// ErrPassesExhausted.
func IsPassesExhausted(err error) bool {
	return errors.Is(err, ErrPassesExhausted)
}

// CallError reports the failure of one external call, identified by its
// fingerprint. It aborts the whole top-level evaluation.
type CallError struct {
	// Adapter is the name of the adapter whose resolution failed.
	Adapter string
	// Fingerprint identifies the failing call.
	Fingerprint string
	// Err is the underlying failure.
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call %q failed: %v", e.Adapter, e.Fingerprint, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// AsCallError extracts a CallError from an error chain, if present.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
