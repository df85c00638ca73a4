package cmd

import (
	"fmt"

	"github.com/jkratochvil/facemark/internal/classifier"
	"github.com/jkratochvil/facemark/internal/config"
	"github.com/jkratochvil/facemark/internal/detect"
	"github.com/jkratochvil/facemark/internal/identify"
	"github.com/jkratochvil/facemark/internal/store"
)

// pipeline bundles the recognition components shared by the commands.
type pipeline struct {
	client  *detect.Client
	locator *detect.Locator
	ref     *classifier.Ref
	trainer *classifier.Trainer
}

// newPipeline wires the detector client, locator, model reference and
// trainer from config. The model artifact is loaded when present; a missing
// artifact leaves the reference empty until the first training run.
func newPipeline(cfg *config.Config) (*pipeline, error) {
	client := detect.NewClient(cfg.Detector.URL)
	locator := detect.NewLocator(client, detect.CascadeOptions{
		MinNeighbors: cfg.Detector.CascadeMinNeighbors,
		MinSize:      cfg.Detector.CascadeMinSize,
	}, cfg.Detector.IoUThreshold)

	ref := classifier.NewRef()
	if err := ref.Reload(cfg.Dataset.ModelPath); err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.Dataset.ModelPath, err)
	}

	return &pipeline{
		client:  client,
		locator: locator,
		ref:     ref,
		trainer: classifier.NewTrainer(cfg.Dataset, client, ref),
	}, nil
}

// identifier builds the identification pipeline. students may be nil when
// running without a database.
func (p *pipeline) identifier(cfg *config.Config, students store.StudentRepository) *identify.Identifier {
	return identify.NewIdentifier(p.locator, p.client, p.ref, students, cfg.Classifier.MatchThreshold)
}
