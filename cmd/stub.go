package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// completeCmd and updateThirdPartyCmd exist so the full invocation-action
// enum (spec.md §6) is represented in the CLI, but both delegate to
// external collaborators spec.md §1 explicitly excludes from the core: the
// shell-completion helper and the third-party vendoring DSL interpreter.
var completeCmd = &cobra.Command{
	Use:    "complete <cmd> <current> <previous>",
	Short:  "Delegated to the external shell-completion helper",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("rebs: shell completion is delegated to an external helper")
		return nil
	},
}

var updateThirdPartyCmd = &cobra.Command{
	Use:   "update-third-party",
	Short: "Delegated to the external third-party vendoring interpreter",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("rebs: third-party vendoring is delegated to an external interpreter")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(updateThirdPartyCmd)
}
