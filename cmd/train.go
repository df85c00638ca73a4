package cmd

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jkratochvil/facemark/internal/config"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Rebuild the face classifier from the dataset",
	Long: `Scan the dataset directory, encode new photos through the detector
service and rebuild the classifier. Encodings of unchanged photos come from
the cache, so incremental runs only pay for new images.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pipe, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	pipe.trainer.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Encoding dataset"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("photos"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(done)
	}

	summary, err := pipe.trainer.Train(cmd.Context())
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	fmt.Println(summary)
	fmt.Printf("Model written to %s\n", cfg.Dataset.ModelPath)
	return nil
}
