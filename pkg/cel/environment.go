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

// Package cel provides the CEL-backed implementation of the engine's
// evaluator port. Resources are exposed to expressions as dynamically
// typed variables, and the engine's intercepted functions surface as
// member functions (for example code.memberOf('...') or ref.resolve()).
package cel

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"github.com/fhir-sigs/fpath/pkg/cel/library"
	"github.com/fhir-sigs/fpath/pkg/runtime"
)

// EnvOption is a function that modifies the environment options.
type EnvOption func(*envOptions)

// envOptions holds all the configuration for the CEL environment.
type envOptions struct {
	// variables will be converted to CEL variable declarations of
	// type 'dyn'.
	variables []string
	// functions are the engine bindings declared as member functions.
	functions []runtime.FunctionBinding
}

// WithVariables adds names that will be declared as CEL variables.
func WithVariables(names ...string) EnvOption {
	return func(opts *envOptions) {
		opts.variables = append(opts.variables, names...)
	}
}

// WithFunctions declares engine function bindings in the environment.
func WithFunctions(functions []runtime.FunctionBinding) EnvOption {
	return func(opts *envOptions) {
		opts.functions = append(opts.functions, functions...)
	}
}

// DefaultEnvironment returns the default CEL environment.
func DefaultEnvironment(options ...EnvOption) (*cel.Env, error) {
	declarations := []cel.EnvOption{
		ext.Lists(),
		ext.Strings(),
		cel.OptionalTypes(),
		ext.Encoders(),
		library.JSON(),
	}

	opts := &envOptions{}
	for _, opt := range options {
		opt(opts)
	}

	for _, fn := range opts.functions {
		declarations = append(declarations, declarationFor(fn))
	}
	for _, name := range opts.variables {
		declarations = append(declarations, cel.Variable(name, cel.DynType))
	}

	return cel.NewEnv(declarations...)
}
