package eval

import (
	"fmt"
	"math/rand"
	"time"

	"gaitlab/internal/cfg"
	"gaitlab/internal/classify"
	"gaitlab/internal/dataset"
	"gaitlab/internal/features"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Tracker defines the metrics methods needed by the engine. It is a
// superset of classify.Tracker so the same wrapper serves both.
type Tracker interface {
	ModelTrainedInc()
	PredictionsAdd(int)
	FeatureErrorInc()
	TrainingObserve(float64)
	CVAccuracyObserve(float64)
}

// ClassMetrics holds the per-class derived rates of one evaluation.
type ClassMetrics struct {
	Label       string  `json:"label"`
	Support     int     `json:"support"`
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
}

// Evaluation is the outcome of one feature-strategy × classifier cell.
type Evaluation struct {
	Strategy     string            `json:"strategy"`
	Model        string            `json:"model"`
	Components   int               `json:"components,omitempty"` // PCA only
	BestK        int               `json:"best_k,omitempty"`     // kNN only
	KSweep       []classify.KScore `json:"k_sweep,omitempty"`
	Accuracy     float64           `json:"accuracy"`
	PerClass     []ClassMetrics    `json:"per_class"`
	Confusion    *ConfusionMatrix  `json:"confusion"`
	TrainSeconds float64           `json:"train_seconds"`
}

// Results collects everything one run produces.
type Results struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Strategy    string       `json:"strategy"`
	Seed        int64        `json:"seed"`
	TrainSize   int          `json:"train_size"`
	TestSize    int          `json:"test_size"`
	Evaluations []Evaluation `json:"evaluations"`
}

// Engine runs the full evaluation grid over the canonical partition.
type Engine struct {
	cfg     *cfg.Settings
	tracker Tracker
	results *Results
}

func NewEngine(c *cfg.Settings, tracker Tracker) *Engine {
	now := time.Now()
	return &Engine{
		cfg:     c,
		tracker: tracker,
		results: &Results{
			RunID:     now.Format("20060102-150405"),
			StartedAt: now,
			Strategy:  c.Strategy,
			Seed:      c.Seed,
		},
	}
}

// GetResults returns the accumulated results.
func (e *Engine) GetResults() *Results {
	return e.results
}

// Run fits and evaluates both classifiers under each configured feature
// strategy. Models live only for the duration of their evaluation.
func (e *Engine) Run(train, test []dataset.Observation) error {
	if len(train) == 0 {
		return fmt.Errorf("empty training partition")
	}
	if len(test) == 0 {
		return fmt.Errorf("empty test partition")
	}
	e.results.TrainSize = len(train)
	e.results.TestSize = len(test)

	xTrain, yTrain := dataset.Matrix(train)
	xTest, yTest := dataset.Matrix(test)

	for _, extractor := range e.extractors() {
		if err := e.runStrategy(extractor, xTrain, yTrain, xTest, yTest); err != nil {
			return fmt.Errorf("strategy %s: %w", extractor.Name(), err)
		}
	}

	e.results.FinishedAt = time.Now()
	log.Info().
		Int("evaluations", len(e.results.Evaluations)).
		Dur("elapsed", e.results.FinishedAt.Sub(e.results.StartedAt)).
		Msg("Evaluation grid complete")

	return nil
}

func (e *Engine) extractors() []features.Extractor {
	switch e.cfg.Strategy {
	case cfg.StrategyPCA:
		return []features.Extractor{features.NewPCA(e.cfg.VarianceTarget, e.cfg.LegacyTestProjection)}
	case cfg.StrategyStats:
		return []features.Extractor{features.NewSummary()}
	default:
		return []features.Extractor{
			features.NewPCA(e.cfg.VarianceTarget, e.cfg.LegacyTestProjection),
			features.NewSummary(),
		}
	}
}

func (e *Engine) runStrategy(extractor features.Extractor, xTrain *mat.Dense, yTrain []string, xTest *mat.Dense, yTest []string) error {
	if err := extractor.Fit(xTrain); err != nil {
		if e.tracker != nil {
			e.tracker.FeatureErrorInc()
		}
		return fmt.Errorf("fit: %w", err)
	}

	fTrain, err := extractor.Transform(xTrain)
	if err != nil {
		if e.tracker != nil {
			e.tracker.FeatureErrorInc()
		}
		return fmt.Errorf("transform train: %w", err)
	}
	fTest, err := extractor.Transform(xTest)
	if err != nil {
		if e.tracker != nil {
			e.tracker.FeatureErrorInc()
		}
		return fmt.Errorf("transform test: %w", err)
	}

	components := 0
	if pca, ok := extractor.(*features.PCA); ok {
		components = pca.Components()
	}

	_, width := fTrain.Dims()
	log.Info().
		Str("strategy", extractor.Name()).
		Int("feature_width", width).
		Msg("Features extracted")

	// kNN with the cross-validated k sweep.
	rng := rand.New(rand.NewSource(e.cfg.Seed))
	bestK, sweep, err := classify.SelectK(rng, fTrain, yTrain, e.cfg.KGrid(), e.cfg.CVFolds, e.trackerForCV())
	if err != nil {
		return fmt.Errorf("k sweep: %w", err)
	}

	knnEval, err := e.evaluate(extractor.Name(), classify.NewKNN(bestK), fTrain, yTrain, fTest, yTest)
	if err != nil {
		return fmt.Errorf("knn: %w", err)
	}
	knnEval.BestK = bestK
	knnEval.KSweep = sweep
	knnEval.Components = components
	e.results.Evaluations = append(e.results.Evaluations, knnEval)

	// Random forest with default ensemble settings.
	forestEval, err := e.evaluate(extractor.Name(), classify.NewForest(e.cfg.Trees, e.cfg.Seed), fTrain, yTrain, fTest, yTest)
	if err != nil {
		return fmt.Errorf("forest: %w", err)
	}
	forestEval.Components = components
	e.results.Evaluations = append(e.results.Evaluations, forestEval)

	return nil
}

// trackerForCV narrows the engine tracker to the classify interface
// without handing SelectK a non-nil interface around a nil value.
func (e *Engine) trackerForCV() classify.Tracker {
	if e.tracker == nil {
		return nil
	}
	return e.tracker
}

func (e *Engine) evaluate(strategy string, model classify.Classifier, fTrain *mat.Dense, yTrain []string, fTest *mat.Dense, yTest []string) (Evaluation, error) {
	start := time.Now()
	if err := model.Fit(fTrain, yTrain); err != nil {
		return Evaluation{}, fmt.Errorf("fit: %w", err)
	}
	elapsed := time.Since(start).Seconds()
	if e.tracker != nil {
		e.tracker.ModelTrainedInc()
		e.tracker.TrainingObserve(elapsed)
	}

	preds, err := model.Predict(fTest)
	if err != nil {
		return Evaluation{}, fmt.Errorf("predict: %w", err)
	}
	if e.tracker != nil {
		e.tracker.PredictionsAdd(len(preds))
	}

	confusion := NewConfusionMatrix(yTest, preds)
	perClass := make([]ClassMetrics, 0, len(confusion.Labels))
	for i, label := range confusion.Labels {
		perClass = append(perClass, ClassMetrics{
			Label:       label,
			Support:     confusion.RowTotal(i),
			Sensitivity: confusion.Sensitivity(label),
			Specificity: confusion.Specificity(label),
		})
	}

	log.Info().
		Str("strategy", strategy).
		Str("model", model.Name()).
		Float64("accuracy", confusion.Accuracy()).
		Float64("train_seconds", elapsed).
		Msg("Model evaluated")

	return Evaluation{
		Strategy:     strategy,
		Model:        model.Name(),
		Accuracy:     confusion.Accuracy(),
		PerClass:     perClass,
		Confusion:    confusion,
		TrainSeconds: elapsed,
	}, nil
}
