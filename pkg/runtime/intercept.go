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

import "github.com/fhir-sigs/fpath/pkg/runtime/pending"

// passState tracks whether one evaluation pass found or introduced pending
// work. A pass with neither is complete and ends the loop.
type passState struct {
	newRegistrations int
	pendingHits      int
}

func (p *passState) incomplete() bool {
	return p.newRegistrations+p.pendingHits > 0
}

// functionBindings builds the evaluator-visible functions for one pass.
// The closures capture the registry and pass state, so they must be
// rebuilt for every pass.
func (r *Runtime) functionBindings(reg *pending.Registry, tasks map[string]task, ps *passState) []FunctionBinding {
	bindings := make([]FunctionBinding, 0, len(r.adapters))
	for _, a := range r.adapters {
		bindings = append(bindings, FunctionBinding{
			Name:   a.Name(),
			Arity:  a.Arity(),
			Invoke: r.handler(a, reg, tasks, ps),
		})
	}
	return bindings
}

// handler intercepts one adapter's function. When the target is a
// sequence the handler fans out element-wise: each element independently
// may be memoized, pending, or malformed, and elements without a result
// contribute nothing to the output.
func (r *Runtime) handler(a CallAdapter, reg *pending.Registry, tasks map[string]task, ps *passState) func(any, []any) (any, error) {
	return func(target any, args []any) (any, error) {
		list, ok := target.([]any)
		if !ok {
			return r.invokeOne(a, reg, tasks, ps, Call{Target: target, Args: args})
		}
		results := make([]any, 0, len(list))
		for _, elem := range list {
			out, err := r.invokeOne(a, reg, tasks, ps, Call{Target: elem, Args: args})
			if err != nil {
				return nil, err
			}
			if out != nil {
				results = append(results, out)
			}
		}
		if len(results) == 0 {
			return nil, nil
		}
		return results, nil
	}
}

// invokeOne answers a single intercepted call: memoized result, propagated
// failure, or an empty result after registering the call as pending.
//
// Record fields are read without the registry lock here; evaluation passes
// run single-threaded and never overlap a resolve phase.
func (r *Runtime) invokeOne(a CallAdapter, reg *pending.Registry, tasks map[string]task, ps *passState, call Call) (any, error) {
	fp, ok := a.Fingerprint(call)
	if !ok {
		// Malformed arguments: no result for this element, no side effect.
		return nil, nil
	}

	rec, created := reg.RegisterIfAbsent(fp)
	if created {
		tasks[fp] = task{adapter: a, call: call}
		ps.newRegistrations++
		return nil, nil
	}

	if rec.State != pending.StateCompleted {
		ps.pendingHits++
		return nil, nil
	}
	if rec.Err != nil {
		// A silently-empty result would mask the failure; surface it to
		// the pass instead.
		return nil, &CallError{Adapter: a.Name(), Fingerprint: fp, Err: rec.Err}
	}
	return rec.Value, nil
}
