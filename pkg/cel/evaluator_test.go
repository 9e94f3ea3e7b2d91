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

package cel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir-sigs/fpath/pkg/runtime"
)

func TestEvaluate(t *testing.T) {
	patient := map[string]any{
		"resourceType": "Patient",
		"id":           "pat1",
		"gender":       "male",
		"name": []any{
			map[string]any{"family": "Chalmers", "given": []any{"Peter", "James"}},
			map[string]any{"family": "Windsor"},
		},
	}

	tests := []struct {
		name       string
		data       map[string]any
		expression string
		env        map[string]any
		want       []any
		wantErr    string
	}{
		{
			name:       "scalar becomes singleton",
			data:       patient,
			expression: `gender`,
			want:       []any{"male"},
		},
		{
			name:       "list passes through",
			data:       patient,
			expression: `name.map(n, n.family)`,
			want:       []any{"Chalmers", "Windsor"},
		},
		{
			name:       "null result is the empty sequence",
			data:       patient,
			expression: `'given' in name[1] ? name[1]['given'] : null`,
			want:       []any{},
		},
		{
			name:       "environment variable",
			data:       patient,
			expression: `gender == expected`,
			env:        map[string]any{"expected": "male"},
			want:       []any{true},
		},
		{
			name:       "environment shadowing rejected",
			data:       patient,
			env:        map[string]any{"gender": "female"},
			expression: `gender`,
			wantErr:    "shadows a resource field",
		},
		{
			name:       "compile error",
			data:       patient,
			expression: `gender ==`,
			wantErr:    "failed compiling expression",
		},
		{
			name:       "undeclared variable",
			data:       patient,
			expression: `nonexistent`,
			wantErr:    "failed compiling expression",
		},
	}

	ev := NewEvaluator()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ev.Evaluate(context.Background(), tc.data, tc.expression, tc.env, nil)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateInterceptedFunction(t *testing.T) {
	// A bound function appears as a member call; a nil result renders as
	// null, which the sequence normalization drops.
	var seen []any
	bindings := []runtime.FunctionBinding{{
		Name:  "lookup",
		Arity: 1,
		Invoke: func(target any, args []any) (any, error) {
			seen = append(seen, target)
			if target == "known" {
				return map[string]any{"found": true}, nil
			}
			return nil, nil
		},
	}}

	ev := NewEvaluator()
	data := map[string]any{"a": "known", "b": "unknown"}

	out, err := ev.Evaluate(context.Background(), data, `a.lookup('x')`, nil, bindings)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"found": true}}, out)

	out, err = ev.Evaluate(context.Background(), data, `b.lookup('x')`, nil, bindings)
	require.NoError(t, err)
	assert.Equal(t, []any{}, out)

	assert.Equal(t, []any{"known", "unknown"}, seen)
}

func TestEvaluatePreservesFunctionErrorChain(t *testing.T) {
	// The driver matches memoized call failures by type through the
	// evaluator's error wrapping, so the chain must survive CEL.
	cause := &runtime.CallError{Adapter: "memberOf", Fingerprint: "male - VS1", Err: errors.New("boom")}
	bindings := []runtime.FunctionBinding{{
		Name:  "memberOf",
		Arity: 1,
		Invoke: func(any, []any) (any, error) {
			return nil, cause
		},
	}}

	ev := NewEvaluator()
	data := map[string]any{"gender": "male"}

	_, err := ev.Evaluate(context.Background(), data, `gender.memberOf('VS1')`, nil, bindings)
	require.Error(t, err)

	var ce *runtime.CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "male - VS1", ce.Fingerprint)
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, []any{}, flatten(nil))
	assert.Equal(t, []any{"a"}, flatten("a"))
	assert.Equal(t, []any{"a", "b"}, flatten([]any{"a", nil, "b"}))
	assert.Equal(t, []any{}, flatten([]any{nil}))
}
