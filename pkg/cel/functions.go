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
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/fhir-sigs/fpath/pkg/runtime"
)

// declarationFor converts an engine function binding into a CEL function
// declaration. The function is declared as a member function on a dyn
// receiver with Arity dyn arguments, so expressions call it as
// target.name(args...).
//
// An engine "no result" (nil) maps to CEL null; engine errors become CEL
// error values, which abort evaluation and surface from Program.Eval with
// their cause preserved for errors.As.
func declarationFor(fn runtime.FunctionBinding) cel.EnvOption {
	argTypes := make([]*cel.Type, fn.Arity+1)
	for i := range argTypes {
		argTypes[i] = cel.DynType
	}

	return cel.Function(fn.Name,
		cel.MemberOverload(fmt.Sprintf("%s_dyn", fn.Name),
			argTypes,
			cel.DynType,
			cel.FunctionBinding(func(args ...ref.Val) ref.Val {
				native := make([]any, len(args))
				for i, arg := range args {
					value, err := GoNativeType(arg)
					if err != nil {
						return types.WrapErr(err)
					}
					native[i] = value
				}
				out, err := fn.Invoke(native[0], native[1:])
				if err != nil {
					return types.WrapErr(err)
				}
				if out == nil {
					return types.NullValue
				}
				return types.DefaultTypeAdapter.NativeToValue(out)
			}),
		),
	)
}
