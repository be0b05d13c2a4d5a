package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chaos-io/bgremove/config"
	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/pipeline"
	"github.com/chaos-io/bgremove/rembg"
)

// options 允许测试替换推理后端
type options struct {
	newBackend func(*config.Config) (rembg.Backend, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(options{newBackend: newBackend})
}

func newRootCmd(opts options) *cobra.Command {
	var (
		configPath string
		quality    string
		forced     string
	)

	cmd := &cobra.Command{
		Use:   "bgremove INPUT OUTPUT",
		Short: "Remove image backgrounds with automatically selected segmentation models",
		Long: `bgremove makes the background of an image transparent.

It guesses whether the image shows a person, picks a segmentation model for that
content and the requested quality, and writes a PNG with an alpha channel. The
result is printed to stdout as a single JSON object.`,
		Example: `  # Standard quality, model chosen automatically
  bgremove photo.jpg photo.png

  # High quality with a specific model
  bgremove photo.jpg photo.png --quality high --model isnet-general-use`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			res := runRemove(cmd.Context(), cmd.ErrOrStderr(), opts, configPath, pipeline.Request{
				InputPath:  args[0],
				OutputPath: args[1],
				Quality:    model.Quality(quality),
				ForceModel: forced,
			})
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVarP(&quality, "quality", "q", string(model.QualityStandard), "Quality tier: standard or high")
	cmd.Flags().StringVarP(&forced, "model", "m", "", fmt.Sprintf("Force a model (%s)", model.IDs()))

	cmd.AddCommand(newServeCmd(opts, &configPath))
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newClassifyCmd())

	return cmd
}

func runRemove(ctx context.Context, logOut io.Writer, opts options, configPath string, req pipeline.Request) *pipeline.Result {
	start := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return pipeline.Failed(err, req.Quality, time.Since(start))
	}
	if err := setupLogger(logOut, cfg); err != nil {
		return pipeline.Failed(err, req.Quality, time.Since(start))
	}

	backend, err := opts.newBackend(cfg)
	if err != nil {
		return pipeline.Failed(err, req.Quality, time.Since(start))
	}

	cache := rembg.NewSessionCache(backend)
	defer func() {
		if err := cache.Close(); err != nil {
			slog.Warn("close sessions", "err", err)
		}
	}()

	return pipeline.NewRemover(cache).Process(ctx, req)
}

// setupLogger 日志只写 stderr，stdout 留给 JSON 结果
func setupLogger(w io.Writer, cfg *config.Config) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
