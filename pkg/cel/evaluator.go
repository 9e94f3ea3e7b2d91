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
	"fmt"
	"slices"
	"time"

	"golang.org/x/exp/maps"

	"github.com/fhir-sigs/fpath/pkg/runtime"
)

// Compile time proof that Evaluator implements the runtime port.
var _ runtime.Evaluator = &Evaluator{}

// Evaluator evaluates CEL expressions over JSON resources. Each top-level
// field of the data map, plus every environment entry, is declared as a
// dyn variable.
//
// Programs are not cached across calls: the engine rebinds its function
// closures on every pass, and CEL bakes function bindings into the
// program at construction time. Compilation cost is observed through the
// package metrics instead.
type Evaluator struct{}

// NewEvaluator returns a CEL evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate compiles and runs one synchronous pass of the expression.
// The result is normalized into a flat sequence: null becomes the empty
// sequence, a list contributes its non-null elements, and any other value
// becomes a singleton.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	data map[string]any,
	expression string,
	env map[string]any,
	functions []runtime.FunctionBinding,
) ([]any, error) {
	activation := make(map[string]any, len(data)+len(env))
	for name, value := range data {
		activation[name] = value
	}
	for name, value := range env {
		if _, shadowed := activation[name]; shadowed {
			return nil, fmt.Errorf("environment entry %q shadows a resource field", name)
		}
		activation[name] = value
	}
	names := maps.Keys(activation)
	slices.Sort(names)

	celEnv, err := DefaultEnvironment(WithVariables(names...), WithFunctions(functions))
	if err != nil {
		return nil, fmt.Errorf("failed creating environment: %w", err)
	}

	compileStart := time.Now()
	ast, issues := celEnv.Compile(expression)
	if issues != nil && issues.Err() != nil {
		Metrics.ObserveCompilation(time.Since(compileStart).Seconds(), issues.Err())
		return nil, fmt.Errorf("failed compiling expression %s: %w", expression, issues.Err())
	}
	program, err := celEnv.Program(ast)
	Metrics.ObserveCompilation(time.Since(compileStart).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("failed programming expression %s: %w", expression, err)
	}

	evalStart := time.Now()
	val, _, err := program.ContextEval(ctx, activation)
	Metrics.ObserveEvaluation(time.Since(evalStart).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("failed evaluating expression %s: %w", expression, err)
	}

	native, err := GoNativeType(val)
	if err != nil {
		return nil, err
	}
	return flatten(native), nil
}

// flatten normalizes an evaluation result into the engine's sequence
// form. Null elements inside a list represent "no value" and are dropped.
func flatten(v any) []any {
	switch val := v.(type) {
	case nil:
		return []any{}
	case []any:
		out := make([]any, 0, len(val))
		for _, elem := range val {
			if elem != nil {
				out = append(out, elem)
			}
		}
		return out
	default:
		return []any{val}
	}
}
