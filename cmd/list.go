package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [packages...]",
	Short: "Print the resolved name, type, and path of the given packages (or --all)",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	names := inputPackageNames(ctx, cmd, args)

	for _, name := range names {
		meta, err := ctx.Metadata.Load(name)
		if err != nil {
			fmt.Printf("%s\t<error: %v>\n", name, err)
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", meta.Name, meta.Type, meta.RootPath)
	}
	return nil
}
