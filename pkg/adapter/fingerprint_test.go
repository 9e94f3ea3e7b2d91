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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir-sigs/fpath/pkg/runtime"
)

func TestTerminologyFingerprint(t *testing.T) {
	ad := NewTerminology(nil)
	assert.Equal(t, "memberOf", ad.Name())
	assert.Equal(t, 1, ad.Arity())

	tests := []struct {
		name      string
		call      runtime.Call
		want      string
		wantMatch bool
	}{
		{
			name:      "bare code",
			call:      runtime.Call{Target: "M", Args: []any{"VS1"}},
			want:      "M - VS1",
			wantMatch: true,
		},
		{
			name: "coding",
			call: runtime.Call{
				Target: map[string]any{"system": "SYS", "code": "M"},
				Args:   []any{"VS1"},
			},
			want:      "SYS|M - VS1",
			wantMatch: true,
		},
		{
			name: "codeable concept joins codings",
			call: runtime.Call{
				Target: map[string]any{"coding": []any{
					map[string]any{"system": "SYS", "code": "M"},
					map[string]any{"system": "OTHER", "code": "X"},
				}},
				Args: []any{"VS1"},
			},
			want:      "SYS|M,OTHER|X - VS1",
			wantMatch: true,
		},
		{
			name:      "same value different value set is a different call",
			call:      runtime.Call{Target: "M", Args: []any{"VS2"}},
			want:      "M - VS2",
			wantMatch: true,
		},
		{
			name:      "missing value set argument",
			call:      runtime.Call{Target: "M"},
			wantMatch: false,
		},
		{
			name:      "empty value set argument",
			call:      runtime.Call{Target: "M", Args: []any{""}},
			wantMatch: false,
		},
		{
			name:      "non-string value set argument",
			call:      runtime.Call{Target: "M", Args: []any{int64(3)}},
			wantMatch: false,
		},
		{
			name:      "non-coded target",
			call:      runtime.Call{Target: map[string]any{"resourceType": "Patient"}, Args: []any{"VS1"}},
			wantMatch: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ad.Fingerprint(tc.call)
			require.Equal(t, tc.wantMatch, ok)
			if tc.wantMatch {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestReferenceFingerprint(t *testing.T) {
	ad := NewReference(nil)
	assert.Equal(t, "resolve", ad.Name())
	assert.Equal(t, 0, ad.Arity())

	tests := []struct {
		name      string
		target    any
		want      string
		wantMatch bool
	}{
		{
			name:      "bare string",
			target:    "Patient/pat1",
			want:      "Patient/pat1",
			wantMatch: true,
		},
		{
			name:      "reference object",
			target:    map[string]any{"reference": "Organization/org1"},
			want:      "Organization/org1",
			wantMatch: true,
		},
		{
			name:      "object without reference field",
			target:    map[string]any{"display": "ACME"},
			wantMatch: false,
		},
		{
			name:      "empty string",
			target:    "",
			wantMatch: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ad.Fingerprint(runtime.Call{Target: tc.target})
			require.Equal(t, tc.wantMatch, ok)
			if tc.wantMatch {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
