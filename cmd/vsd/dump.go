package main

import (
	"github.com/spf13/cobra"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/catalog"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <catalog> [path]",
	Short: "Print a catalog as a tree",
	Long: `dump loads a catalog without joining the network and prints the whole
tree, or the subtree at path. --info prints every attribute of path.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().Bool("defaults", false, "show default values")
	dumpCmd.Flags().Bool("info", false, "print the attributes of path instead of the tree")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	entries, err := catalog.LoadFile(args[0])
	if err != nil {
		return err
	}
	tree := model.NewTree()
	if err := tree.Load(entries); err != nil {
		return err
	}

	var root model.Signal
	if len(args) == 2 {
		if root, err = tree.Lookup(args[1]); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	if info, _ := cmd.Flags().GetBool("info"); info && !root.IsZero() {
		i, err := tree.Info(root)
		if err != nil {
			return err
		}
		formatInfo(out, i)
		return nil
	}
	values, _ := cmd.Flags().GetBool("defaults")
	return printTree(out, tree, root, values)
}
