package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kazuvin/teto/internal/assets"
	"github.com/kazuvin/teto/internal/compiler"
	"github.com/kazuvin/teto/internal/logging"
	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/tts"
)

// compile lowers a script and dumps each project timeline as YAML so the
// absolute timings can be inspected without encoding anything.
func newCompileCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "compile <script.json|script.yaml>",
		Short: "Compile a script and write the timed project timeline(s)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.WithComponent("cli")

			s, err := script.Load(args[0])
			if err != nil {
				return err
			}

			provider := tts.WithRetry(tts.NewSilenceProvider(), logger)
			resolver := assets.NewLocalResolver(outputDir, nil)
			comp, err := compiler.New(provider, resolver, compiler.WithOutputDir(outputDir))
			if err != nil {
				return err
			}

			results, err := comp.CompileAll(cmd.Context(), s)
			if err != nil {
				return err
			}

			for _, res := range results {
				base := strings.TrimSuffix(res.Project.Output.Path, filepath.Ext(res.Project.Output.Path))
				dump := base + ".timeline.yaml"
				if err := res.Project.WriteYAML(dump); err != nil {
					return err
				}
				fmt.Printf("%s  (%.2fs, %d scenes)\n",
					dump, res.Metadata.TotalDuration, len(res.Metadata.SceneTimings))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "./output", "output directory")
	return cmd
}
