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

package command

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fhir-sigs/fpath/pkg/adapter"
	fpcel "github.com/fhir-sigs/fpath/pkg/cel"
	"github.com/fhir-sigs/fpath/pkg/client"
	"github.com/fhir-sigs/fpath/pkg/fhir"
	"github.com/fhir-sigs/fpath/pkg/runtime"
)

// EvalOptions holds the options for the eval command.
type EvalOptions struct {
	DataFile          string
	ConfigFile        string
	FHIRServer        string
	TerminologyServer string
	MaxPasses         int
	Trace             bool
}

// fileConfig mirrors EvalOptions for the optional YAML config file.
// Flags set explicitly on the command line win over file values.
type fileConfig struct {
	FHIRServer        string `yaml:"fhirServer"`
	TerminologyServer string `yaml:"terminologyServer"`
	MaxPasses         int    `yaml:"maxPasses"`
}

// NewEvalCommand evaluates one expression against a resource file.
func NewEvalCommand() *cobra.Command {
	opts := &EvalOptions{}

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression against a FHIR resource",
		Long: Highlight("fpath eval <expression> --data <resource.json>") + `

Evaluate an expression against a resource read from a JSON file. The
expression may call resolve() on literal references and memberOf() on
coded values; the engine answers them from the configured FHIR and
terminology servers before the final result is printed as JSON.
`,
		Example: `  fpath eval "code.memberOf('http://example.org/vs/conditions')" -d condition.json \
      --terminology-server https://tx.example.org/fhir`,
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.DataFile, "data", "d", "", "path to the JSON resource to evaluate against (required)")
	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "path to a YAML config file with server endpoints")
	cmd.Flags().StringVar(&opts.FHIRServer, "fhir-server", "", "base URL used to resolve relative references")
	cmd.Flags().StringVar(&opts.TerminologyServer, "terminology-server", "", "base URL of the terminology server")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", runtime.DefaultMaxPasses, "maximum number of evaluation passes")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "log external call resolution to stderr")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runEval(cmd *cobra.Command, opts *EvalOptions, expression string) error {
	if err := applyConfigFile(cmd, opts); err != nil {
		return err
	}

	raw, err := os.ReadFile(opts.DataFile)
	if err != nil {
		return fmt.Errorf("reading data file: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parsing %s: %w", opts.DataFile, err)
	}

	log := logr.Discard()
	if opts.Trace {
		log = funcr.New(func(prefix, args string) {
			fmt.Fprintln(cmd.ErrOrStderr(), prefix, args)
		}, funcr.Options{})
	}

	fhirClient, err := client.New(opts.FHIRServer, client.WithLogger(log))
	if err != nil {
		return err
	}
	termClient, err := client.New(opts.TerminologyServer, client.WithLogger(log))
	if err != nil {
		return err
	}

	rt, err := runtime.New(
		fpcel.NewEvaluator(),
		[]runtime.CallAdapter{
			adapter.NewReference(fhirClient),
			adapter.NewTerminology(termClient),
		},
		runtime.WithMaxPasses(opts.MaxPasses),
		runtime.WithLogger(log),
		runtime.WithTrace(opts.Trace),
	)
	if err != nil {
		return err
	}

	result, err := rt.EvaluateAsync(cmd.Context(), data, expression, nil)
	if err != nil {
		printOutcome(cmd, fhir.AsOutcome(err))
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	cmd.Println(string(encoded))
	return nil
}

// applyConfigFile fills options from the YAML config file without
// overriding flags the user set explicitly.
func applyConfigFile(cmd *cobra.Command, opts *EvalOptions) error {
	if opts.ConfigFile == "" {
		return nil
	}
	raw, err := os.ReadFile(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", opts.ConfigFile, err)
	}

	if !cmd.Flags().Changed("fhir-server") && cfg.FHIRServer != "" {
		opts.FHIRServer = cfg.FHIRServer
	}
	if !cmd.Flags().Changed("terminology-server") && cfg.TerminologyServer != "" {
		opts.TerminologyServer = cfg.TerminologyServer
	}
	if !cmd.Flags().Changed("max-passes") && cfg.MaxPasses > 0 {
		opts.MaxPasses = cfg.MaxPasses
	}
	return nil
}

func printOutcome(cmd *cobra.Command, outcome *fhir.OperationOutcome) {
	encoded, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), string(encoded))
}
