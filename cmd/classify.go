package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chaos-io/bgremove/classify"
	"github.com/chaos-io/bgremove/model"
)

type classifyResult struct {
	Label     model.Label      `json:"label"`
	Quality   model.Quality    `json:"quality"`
	ModelID   string           `json:"recommended_model"`
	ModelInfo model.Descriptor `json:"model_info"`
}

// newClassifyCmd 只做内容分类和模型选择，不加载模型
func newClassifyCmd() *cobra.Command {
	var quality string

	cmd := &cobra.Command{
		Use:   "classify INPUT",
		Short: "Show the content label and the model that would be used for an image",
		Example: `  # Which model would a high quality run pick?
  bgremove classify photo.jpg --quality high`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := model.ParseQuality(quality)
			if err != nil {
				return err
			}

			label, err := classify.File(args[0])
			if err != nil {
				return err
			}
			id, err := model.Select(label, q, "")
			if err != nil {
				return err
			}
			info, _ := model.Lookup(id)

			return writeJSON(cmd.OutOrStdout(), classifyResult{
				Label:     label,
				Quality:   q,
				ModelID:   id,
				ModelInfo: info,
			})
		},
	}

	cmd.Flags().StringVarP(&quality, "quality", "q", string(model.QualityStandard), "Quality tier: standard or high")

	return cmd
}
