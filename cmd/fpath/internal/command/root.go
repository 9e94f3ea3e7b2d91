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
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the fpath command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "fpath",
		Short: Highlight("fpath [global options] <subcommand> [args]") + "\n" +
			"Evaluate expressions over FHIR resources, resolving remote references\n" +
			"and terminology lookups transparently",
		Long: Highlight("Usage: fpath [global options] <subcommand> [args]\n") + `
fpath evaluates expressions against FHIR resources. Functions that depend
on remote services - resolve() for literal references, memberOf() for
value-set membership - behave like ordinary synchronous functions: the
engine collects the remote calls a pass needs, resolves them all
concurrently, and replays the expression until the result settles.
`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		NewEvalCommand(),
		NewVersionCommand(),
	)

	return cmd
}
