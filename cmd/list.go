package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/vprep/internal/transform"
	"github.com/gnolang/vprep/preprocess"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available transforms",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := preprocess.LoadConfig(cfgFile)
		if err != nil {
			logger.Error("Failed to load configuration", zap.Error(err))
			os.Exit(1)
		}
		printTransforms(os.Stdout, cfg.Transforms)
	},
}

// printTransforms lists every registered transform; the configured ones are
// prefixed with their position in the pipeline.
func printTransforms(w io.Writer, pipeline []string) {
	position := make(map[string]int, len(pipeline))
	for i, name := range pipeline {
		position[name] = i + 1
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range transform.Names() {
		entry, _ := transform.Lookup(name)
		order := "-"
		if p, ok := position[name]; ok {
			order = fmt.Sprintf("%d", p)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", order, entry.Name, entry.Description)
	}
	_ = tw.Flush()
}
