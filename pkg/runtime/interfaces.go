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

import "context"

// Evaluator is the synchronous expression evaluator the driver replays.
//
// Note: the use of an interface here is to allow for easy testing and
// mocking of the evaluator the driver uses, and to keep the expression
// language pluggable. The engine ships a CEL-backed implementation in
// pkg/cel.
//
// Implementations must be pure with respect to (data, expression, env,
// function results): given the same inputs and the same answers from the
// provided functions, Evaluate must return the same output. The fixpoint
// loop replays the whole expression between resolve phases and relies on
// this property to converge.
//
// A function returning (nil, nil) for an element is "no result"; the
// evaluator must carry on with the rest of the expression rather than
// abort.
type Evaluator interface {
	Evaluate(ctx context.Context, data map[string]any, expression string, env map[string]any, functions []FunctionBinding) ([]any, error)
}

// FunctionBinding declares one engine-provided function to the evaluator.
// Bindings are rebuilt for every pass; the closures capture the state of
// that pass and must not be retained across passes.
type FunctionBinding struct {
	// Name is the function name visible in expressions.
	Name string

	// Arity is the number of literal arguments after the target element.
	Arity int

	// Invoke receives the value the function was applied to, followed by
	// the already-evaluated literal arguments. A nil result with a nil
	// error means "no result for this element".
	Invoke func(target any, args []any) (any, error)
}

// Call captures one invocation of an intercepted function: the element the
// function was applied to plus its literal arguments. The adapter that
// produced a fingerprint for a call receives the same call back when the
// resolve phase runs it.
type Call struct {
	Target any
	Args   []any
}

// CallAdapter translates one interceptable function into a fingerprint and
// an out-of-band resolution.
type CallAdapter interface {
	// Name is the function name the adapter intercepts.
	Name() string

	// Arity is the number of literal arguments the function declares,
	// excluding the target element.
	Arity() int

	// Fingerprint derives the canonical identity of a call from its
	// semantic arguments. It must be a pure function of the call. A false
	// return means the arguments are malformed and the call is skipped,
	// never queued.
	Fingerprint(call Call) (string, bool)

	// Resolve performs the external computation for a call. The driver
	// invokes it at most once per fingerprint per top-level evaluation. A
	// nil result with a nil error means the call resolved to nothing.
	Resolve(ctx context.Context, call Call) (any, error)
}
