package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kazuvin/teto/internal/assets"
	"github.com/kazuvin/teto/internal/compiler"
	"github.com/kazuvin/teto/internal/logging"
	"github.com/kazuvin/teto/internal/media"
	"github.com/kazuvin/teto/internal/render"
	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/tts"
)

func newRenderCmd() *cobra.Command {
	var (
		outputDir string
		workers   int
		noCache   bool
		codec     string
	)

	cmd := &cobra.Command{
		Use:   "render <script.json|script.yaml>",
		Short: "Compile a script and render every requested output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.WithComponent("cli")

			s, err := script.Load(args[0])
			if err != nil {
				return err
			}
			if codec == "auto" {
				detected := media.DetectEncoder()
				for i := range s.Output {
					s.Output[i].Codec = detected
				}
				logger.Info().Str("codec", detected).Msg("selected encoder")
			} else if codec != "" {
				for i := range s.Output {
					s.Output[i].Codec = codec
				}
			}

			provider := tts.WithRetry(tts.NewSilenceProvider(), logger)
			resolver := assets.NewLocalResolver(outputDir, nil)

			opts := []compiler.Option{compiler.WithOutputDir(outputDir)}
			if noCache {
				opts = append(opts, compiler.WithoutCache())
			}
			comp, err := compiler.New(provider, resolver, opts...)
			if err != nil {
				return err
			}

			results, err := comp.CompileAll(cmd.Context(), s)
			if err != nil {
				return err
			}

			backend, err := media.NewFFmpeg(logger)
			if err != nil {
				return err
			}
			driver := render.NewDriver(render.NewGenerator(backend, nil))
			if workers > 0 {
				driver.Workers = workers
			}

			rendered := driver.RenderAll(cmd.Context(), results, render.Options{
				Verbose:  verbose,
				Progress: func(msg string) { logger.Info().Msg(msg) },
			})
			for _, r := range rendered {
				if r.Err != nil {
					continue
				}
				fmt.Println(r.Path)
			}
			if failed := render.Failed(rendered); failed > 0 {
				return fmt.Errorf("%d of %d output(s) failed", failed, len(rendered))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "./output", "output directory")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel renders (default: CPU count)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the TTS cache")
	cmd.Flags().StringVar(&codec, "codec", "", "video codec override (auto probes for hardware encoders)")
	return cmd
}
