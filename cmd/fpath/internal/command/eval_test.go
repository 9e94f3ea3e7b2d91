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

package command_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir-sigs/fpath/cmd/fpath/internal/command"
	"github.com/fhir-sigs/fpath/pkg/fhir"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := command.NewRootCommand()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestEvalCommand(t *testing.T) {
	term := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := true
		_ = json.NewEncoder(w).Encode(fhir.NewParameters(
			fhir.Parameter{Name: "result", ValueBoolean: &result},
		))
	}))
	defer term.Close()

	dataFile := writeFile(t, "patient.json", `{"resourceType": "Patient", "gender": "male"}`)

	out, _, err := runCommand(t,
		"eval", `gender.memberOf('http://example.org/ValueSet/gender')`,
		"--data", dataFile,
		"--terminology-server", term.URL,
	)
	require.NoError(t, err)

	var result []any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []any{true}, result)
}

func TestEvalCommandConfigFile(t *testing.T) {
	term := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := false
		_ = json.NewEncoder(w).Encode(fhir.NewParameters(
			fhir.Parameter{Name: "result", ValueBoolean: &result},
		))
	}))
	defer term.Close()

	dataFile := writeFile(t, "patient.json", `{"resourceType": "Patient", "gender": "unknown"}`)
	configFile := writeFile(t, "config.yaml", "terminologyServer: "+term.URL+"\nmaxPasses: 5\n")

	out, _, err := runCommand(t,
		"eval", `gender.memberOf('http://example.org/ValueSet/gender')`,
		"--data", dataFile,
		"--config", configFile,
	)
	require.NoError(t, err)

	var result []any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []any{false}, result)
}

func TestEvalCommandFlagsWinOverConfig(t *testing.T) {
	reached := false
	term := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		result := true
		_ = json.NewEncoder(w).Encode(fhir.NewParameters(
			fhir.Parameter{Name: "result", ValueBoolean: &result},
		))
	}))
	defer term.Close()

	dataFile := writeFile(t, "patient.json", `{"resourceType": "Patient", "gender": "male"}`)
	configFile := writeFile(t, "config.yaml", "terminologyServer: http://unreachable.invalid\n")

	_, _, err := runCommand(t,
		"eval", `gender.memberOf('http://example.org/ValueSet/gender')`,
		"--data", dataFile,
		"--config", configFile,
		"--terminology-server", term.URL,
	)
	require.NoError(t, err)
	assert.True(t, reached)
}

func TestEvalCommandPrintsOutcomeOnFailure(t *testing.T) {
	term := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer term.Close()

	dataFile := writeFile(t, "patient.json", `{"resourceType": "Patient", "gender": "male"}`)

	_, errOut, err := runCommand(t,
		"eval", `gender.memberOf('http://example.org/ValueSet/gender')`,
		"--data", dataFile,
		"--terminology-server", term.URL,
	)
	require.Error(t, err)
	assert.Contains(t, errOut, `"resourceType": "OperationOutcome"`)
	assert.Contains(t, errOut, `"severity": "fatal"`)
}

func TestEvalCommandMissingData(t *testing.T) {
	_, _, err := runCommand(t, "eval", "gender")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data")
}

func TestEvalCommandRejectsExtraArgs(t *testing.T) {
	dataFile := writeFile(t, "patient.json", `{"resourceType": "Patient"}`)

	_, _, err := runCommand(t, "eval", "gender", "extra", "--data", dataFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1 arguments")
}
