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

// Package library holds small CEL libraries shared by every engine
// environment.
package library

import (
	"encoding/json"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// JSON returns a CEL library providing JSON parsing.
//
// json.unmarshal() parses a JSON string and returns the parsed value:
// a map for objects, a list for arrays, string/int/double/bool for
// primitives and null for JSON null. Useful for resources that embed
// serialized JSON in string fields.
//
// Example usage:
//
//	json.unmarshal('{"name": "test"}').name
//	json.unmarshal(questionnaire.contained)[0]
func JSON() cel.EnvOption {
	return cel.Lib(&jsonLibrary{})
}

type jsonLibrary struct{}

func (l *jsonLibrary) LibraryName() string {
	return "json"
}

func (l *jsonLibrary) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("json.unmarshal",
			cel.Overload("json.unmarshal_string",
				[]*cel.Type{cel.StringType},
				cel.DynType,
				cel.UnaryBinding(unmarshalJSON),
			),
		),
	}
}

func (l *jsonLibrary) ProgramOptions() []cel.ProgramOption {
	return nil
}

func unmarshalJSON(jsonString ref.Val) ref.Val {
	str, ok := jsonString.Value().(string)
	if !ok {
		return types.NewErr("json.unmarshal argument must be a string")
	}
	var parsed any
	if err := json.Unmarshal([]byte(str), &parsed); err != nil {
		return types.NewErr("json.unmarshal: invalid JSON: %v", err)
	}
	return types.DefaultTypeAdapter.NativeToValue(parsed)
}
