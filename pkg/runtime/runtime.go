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

// Package runtime drives asynchronous evaluation of expressions over a
// strictly synchronous evaluator.
//
// The evaluator cannot suspend, but some functions reachable from an
// expression (resolving a reference, checking value-set membership) are
// answered by remote services. The driver bridges the two with a
// collect-then-resolve-then-replay loop: a synchronous pass runs with
// intercepted functions that either answer from the registry or record a
// pending call and return nothing; all pending calls are then resolved
// concurrently out-of-band; the expression is replayed from scratch until
// a pass introduces no new pending work or the pass bound is hit.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fhir-sigs/fpath/pkg/fhir"
	"github.com/fhir-sigs/fpath/pkg/runtime/pending"
)

const (
	// DefaultMaxPasses bounds the number of evaluation passes. The loop
	// normally settles once the reachable set of distinct fingerprints is
	// exhausted; the bound is a safety net against expressions whose
	// output keeps discovering new calls.
	DefaultMaxPasses = 10

	// DefaultParallelism bounds concurrent external calls in one resolve
	// phase.
	DefaultParallelism = 8
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithMaxPasses overrides the evaluation pass bound.
func WithMaxPasses(n int) Option {
	return func(r *Runtime) {
		r.maxPasses = n
	}
}

// WithParallelism bounds concurrent external calls during resolve phases.
func WithParallelism(n int) Option {
	return func(r *Runtime) {
		r.parallelism = n
	}
}

// WithLogger sets the logger. Defaults to logr.Discard().
func WithLogger(log logr.Logger) Option {
	return func(r *Runtime) {
		r.log = log
	}
}

// WithTrace emits resolution trace messages at the logger's info level
// instead of a raised verbosity. It affects observability only, never
// results.
func WithTrace(trace bool) Option {
	return func(r *Runtime) {
		r.trace = trace
	}
}

// Runtime replays a synchronous evaluator until every external call
// reachable from the expression has been resolved. It is safe for
// concurrent use: all per-evaluation state lives in the registry created
// inside EvaluateAsync.
type Runtime struct {
	evaluator   Evaluator
	adapters    []CallAdapter
	maxPasses   int
	parallelism int
	log         logr.Logger
	trace       bool
}

// New creates a Runtime around an evaluator and the adapters whose
// functions it intercepts.
func New(evaluator Evaluator, adapters []CallAdapter, opts ...Option) (*Runtime, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator must not be nil")
	}
	seen := make(map[string]struct{}, len(adapters))
	for _, a := range adapters {
		if _, dup := seen[a.Name()]; dup {
			return nil, fmt.Errorf("adapter %q registered twice", a.Name())
		}
		seen[a.Name()] = struct{}{}
	}

	r := &Runtime{
		evaluator:   evaluator,
		adapters:    adapters,
		maxPasses:   DefaultMaxPasses,
		parallelism: DefaultParallelism,
		log:         logr.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxPasses < 1 {
		return nil, fmt.Errorf("max passes must be at least 1, got %d", r.maxPasses)
	}
	if r.parallelism < 1 {
		return nil, fmt.Errorf("parallelism must be at least 1, got %d", r.parallelism)
	}
	return r, nil
}

// task pairs a registered fingerprint with the adapter and call able to
// resolve it. Tasks are recorded on the evaluation pass goroutine only.
type task struct {
	adapter CallAdapter
	call    Call
}

// EvaluateAsync evaluates the expression against data, resolving external
// calls between passes, and returns the settled result sequence.
//
// Failures carry a *fhir.OutcomeError with one issue per fatal condition;
// an external-call failure names the failing fingerprint.
func (r *Runtime) EvaluateAsync(ctx context.Context, data map[string]any, expression string, env map[string]any) ([]any, error) {
	reg := pending.NewRegistry()
	tasks := make(map[string]task)
	log := r.log.WithValues("evaluation", uuid.NewString())

	for pass := 1; pass <= r.maxPasses; pass++ {
		ps := &passState{}
		out, err := r.evaluator.Evaluate(ctx, data, expression, env, r.functionBindings(reg, tasks, ps))
		if err != nil {
			if ce, ok := AsCallError(err); ok {
				// A memoized failure propagated through a handler keeps
				// its identity rather than degrading into a generic
				// evaluator error.
				engineMetrics.ObservePasses(pass, resultFailed)
				return nil, fhir.Errorf(fhir.IssueCodeProcessing, ce, "external call %q failed: %v", ce.Fingerprint, ce.Err)
			}
			if !ps.incomplete() {
				engineMetrics.ObservePasses(pass, resultFailed)
				return nil, fhir.Errorf(fhir.IssueCodeInvalid, err, "expression evaluation failed: %v", err)
			}
			// The pass tripped over a value that is still pending, for
			// example a member access on a call that has not resolved yet.
			// The registry already holds the work needed to make the next
			// pass succeed, so the error is provisional, not fatal.
			r.traceLog(log).Info("pass errored with pending work, replaying", "pass", pass, "error", err.Error())
		}

		if err == nil && !ps.incomplete() {
			r.traceLog(log).Info("evaluation settled", "passes", pass, "externalCalls", reg.Len())
			engineMetrics.ObservePasses(pass, resultComplete)
			return out, nil
		}

		if pass == r.maxPasses {
			break
		}
		if err := r.resolvePending(ctx, log, reg, tasks); err != nil {
			engineMetrics.ObservePasses(pass, resultFailed)
			return nil, err
		}
	}

	engineMetrics.ObservePasses(r.maxPasses, resultExhausted)
	return nil, fhir.Errorf(fhir.IssueCodeProcessing, ErrPassesExhausted,
		"evaluation did not settle after %d passes; %d calls still pending", r.maxPasses, len(reg.Pending()))
}

// resolvePending resolves every not-started record concurrently and waits
// for the whole batch. Sibling calls run to completion even when one of
// them fails, so the registry is consistent before the failure surfaces.
func (r *Runtime) resolvePending(ctx context.Context, log logr.Logger, reg *pending.Registry, tasks map[string]task) error {
	fingerprints := reg.Pending()
	if len(fingerprints) == 0 {
		return nil
	}
	for _, fp := range fingerprints {
		if err := reg.MarkInFlight(fp); err != nil {
			return fhir.Errorf(fhir.IssueCodeException, err, "resolution bookkeeping failed: %v", err)
		}
	}
	r.traceLog(log).Info("resolving pending calls", "count", len(fingerprints))

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for _, fp := range fingerprints {
		fp := fp
		t, ok := tasks[fp]
		if !ok {
			return fhir.Errorf(fhir.IssueCodeException, nil, "no resolve task for fingerprint %q", fp)
		}
		g.Go(func() error {
			start := time.Now()
			value, callErr := t.adapter.Resolve(ctx, t.call)
			engineMetrics.ObserveResolution(t.adapter.Name(), time.Since(start).Seconds(), callErr)
			if err := reg.Complete(fp, value, callErr); err != nil {
				return err
			}
			if callErr != nil {
				return &CallError{Adapter: t.adapter.Name(), Fingerprint: fp, Err: callErr}
			}
			r.traceLog(log).Info("resolved", "adapter", t.adapter.Name(), "fingerprint", fp)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ce, ok := AsCallError(err); ok {
			return fhir.Errorf(fhir.IssueCodeProcessing, ce, "external call %q failed: %v", ce.Fingerprint, ce.Err)
		}
		return fhir.Errorf(fhir.IssueCodeException, err, "resolution bookkeeping failed: %v", err)
	}
	return nil
}

// traceLog returns the logger at info level when tracing is on, otherwise
// at a raised verbosity.
func (r *Runtime) traceLog(log logr.Logger) logr.Logger {
	if r.trace {
		return log
	}
	return log.V(1)
}
