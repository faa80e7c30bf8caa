package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/TobiSchelling/sentiscope/internal/classify"
	"github.com/TobiSchelling/sentiscope/internal/compose"
	"github.com/TobiSchelling/sentiscope/internal/config"
	"github.com/TobiSchelling/sentiscope/internal/database"
	"github.com/TobiSchelling/sentiscope/internal/features"
	"github.com/TobiSchelling/sentiscope/internal/normalize"
	"github.com/TobiSchelling/sentiscope/internal/sentiment"
)

// Classifier sends a composed prompt to the classification service.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, bool)
	Provider() string
}

// Store persists the checkpoint of the most recent run.
type Store interface {
	SaveCheckpoint(cp *database.Checkpoint) error
	LoadCheckpoint() (*database.Checkpoint, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Input is the text to process and where it came from.
type Input struct {
	Text   string
	Source string
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID          string
	Input          Input
	Normalized     string
	Features       []features.Feature
	FeatureText    string
	Prompt         string
	Classification *string
	Emotions       []string
	Sentiment      sentiment.Score
	Steps          []StepResult
	Checkpoint     *database.Checkpoint
}

// Pipeline runs normalize, rank, compose, score, classify and save.
type Pipeline struct {
	normalizer *normalize.Normalizer
	ranker     *features.Ranker
	composer   *compose.Composer
	classifier Classifier
	store      Store
}

// New creates a pipeline from its parts. classifier and store may be nil
// for dry runs.
func New(n *normalize.Normalizer, r *features.Ranker, c *compose.Composer, classifier Classifier, store Store) *Pipeline {
	return &Pipeline{
		normalizer: n,
		ranker:     r,
		composer:   c,
		classifier: classifier,
		store:      store,
	}
}

// FromConfig creates a pipeline with the text stages configured by cfg.
func FromConfig(cfg *config.Config, classifier Classifier, store Store) (*Pipeline, error) {
	order, err := features.ParseOrder(cfg.Features.Order)
	if err != nil {
		return nil, err
	}
	return New(
		normalize.New(cfg.Text.ExtraStopwords),
		features.NewRanker(order),
		compose.NewComposer(cfg.Prompt.Suffix),
		classifier,
		store,
	), nil
}

// Run executes the full pipeline on in and writes the checkpoint. A
// cancelled context aborts before the checkpoint is written.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	r := p.prepare(in)

	// Step 5: Classify
	step := p.runClassify(ctx, r)
	r.Steps = append(r.Steps, step)

	if err := ctx.Err(); err != nil {
		return r, err
	}

	// Step 6: Save
	step = p.runSave(r)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r, step.Err
	}

	return r, nil
}

// DryRun runs the text stages only. Nothing is sent or saved.
func (p *Pipeline) DryRun(in Input) *Result {
	r := p.prepare(in)
	r.Steps = append(r.Steps,
		StepResult{Name: "Classify", Summary: fmt.Sprintf("[dry-run] Would send %d-character prompt", len(r.Prompt))},
		StepResult{Name: "Save", Summary: "[dry-run] Checkpoint left unchanged"},
	)
	return r
}

// Load returns the saved checkpoint without recomputing anything.
func (p *Pipeline) Load() (*database.Checkpoint, error) {
	if p.store == nil {
		return nil, database.ErrCheckpointNotFound
	}
	cp, err := p.store.LoadCheckpoint()
	if err != nil {
		return nil, err
	}
	slog.Info("[Pipeline] Loaded checkpoint", slog.String("run_id", cp.RunID))
	return cp, nil
}

// prepare runs steps 1-4, which are pure and cannot fail.
func (p *Pipeline) prepare(in Input) *Result {
	r := &Result{RunID: uuid.NewString(), Input: in}
	slog.Debug("[Pipeline] Starting run", slog.String("run_id", r.RunID), slog.String("source", in.Source))

	// Step 1: Normalize
	r.Normalized = p.normalizer.Normalize(in.Text)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Normalize",
		Summary: fmt.Sprintf("%d words kept", len(strings.Fields(r.Normalized))),
	})

	// Step 2: Rank features
	r.FeatureText, r.Features = p.ranker.Extract(r.Normalized)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Features",
		Summary: fmt.Sprintf("%d distinct words ranked by %s order", len(r.Features), p.ranker.Order()),
	})

	// Step 3: Compose
	r.Prompt = p.composer.Compose(r.FeatureText)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Compose",
		Summary: fmt.Sprintf("Prompt of %d characters", len(r.Prompt)),
	})

	// Step 4: Local sentiment
	r.Sentiment = sentiment.Analyze(in.Text)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Sentiment",
		Summary: fmt.Sprintf("%s (%.3f)", r.Sentiment.Label, r.Sentiment.Compound),
	})

	return r
}

func (p *Pipeline) runClassify(ctx context.Context, r *Result) StepResult {
	if p.classifier == nil {
		return StepResult{Name: "Classify", Summary: "No classifier configured"}
	}

	slog.Info("[Pipeline] Classifying", slog.String("provider", p.classifier.Provider()))
	text, ok := p.classifier.Classify(ctx, r.Prompt)
	if !ok {
		return StepResult{Name: "Classify", Summary: "No classification returned"}
	}

	r.Classification = &text
	r.Emotions = classify.ParseEmotions(text)
	return StepResult{
		Name:    "Classify",
		Summary: fmt.Sprintf("%d emotions via %s", len(r.Emotions), p.classifier.Provider()),
	}
}

func (p *Pipeline) runSave(r *Result) StepResult {
	cp := &database.Checkpoint{
		RunID:            r.RunID,
		Source:           r.Input.Source,
		Text:             r.Input.Text,
		IntermediateText: r.FeatureText,
		FinalText:        r.Prompt,
		Classification:   r.Classification,
		FeatureOrder:     string(p.ranker.Order()),
		SentimentScore:   r.Sentiment.Compound,
		SentimentLabel:   r.Sentiment.Label,
	}
	r.Checkpoint = cp

	if p.store == nil {
		return StepResult{Name: "Save", Summary: "No checkpoint store configured"}
	}
	if err := p.store.SaveCheckpoint(cp); err != nil {
		return StepResult{Name: "Save", Err: fmt.Errorf("saving checkpoint: %w", err)}
	}
	return StepResult{Name: "Save", Summary: "Checkpoint written"}
}
