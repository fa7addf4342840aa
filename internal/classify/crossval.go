package classify

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// KScore is the mean cross-validation accuracy for one grid point.
type KScore struct {
	K        int     `json:"k"`
	Accuracy float64 `json:"accuracy"`
}

// SelectK sweeps the kNN hyperparameter grid with n-fold cross-validation
// on the training set and returns the best k plus the full sweep. Folds
// are assigned from a seeded shuffle so the selection is reproducible;
// accuracy ties resolve to the smallest k.
func SelectK(rng *rand.Rand, x *mat.Dense, y []string, grid []int, folds int, tracker Tracker) (int, []KScore, error) {
	n, _ := x.Dims()
	if len(grid) == 0 {
		return 0, nil, fmt.Errorf("empty k grid")
	}
	if folds < 2 {
		return 0, nil, fmt.Errorf("need at least 2 folds, got %d", folds)
	}
	if n < folds {
		return 0, nil, fmt.Errorf("%d training rows cannot fill %d folds", n, folds)
	}

	// Shuffled round-robin fold assignment.
	perm := rng.Perm(n)
	foldOf := make([]int, n)
	for i, p := range perm {
		foldOf[p] = i % folds
	}

	scores := make([]KScore, 0, len(grid))
	bestK, bestAcc := 0, -1.0

	for _, k := range grid {
		// Every row is held out exactly once, so the mean CV accuracy is
		// the accuracy of the stitched-together hold-out predictions.
		held := make([]string, n)
		for fold := 0; fold < folds; fold++ {
			var trainIdx, holdIdx []int
			for i := 0; i < n; i++ {
				if foldOf[i] == fold {
					holdIdx = append(holdIdx, i)
				} else {
					trainIdx = append(trainIdx, i)
				}
			}

			model := NewKNN(k)
			if err := model.Fit(rowsSubset(x, trainIdx), labelsSubset(y, trainIdx)); err != nil {
				return 0, nil, fmt.Errorf("fold %d: %w", fold, err)
			}
			if tracker != nil {
				tracker.ModelTrainedInc()
			}

			preds, err := model.Predict(rowsSubset(x, holdIdx))
			if err != nil {
				return 0, nil, fmt.Errorf("fold %d: %w", fold, err)
			}

			if tracker != nil && len(holdIdx) > 0 {
				tracker.CVAccuracyObserve(Accuracy(labelsSubset(y, holdIdx), preds))
			}
			for i, j := range holdIdx {
				held[j] = preds[i]
			}
		}

		acc := Accuracy(y, held)
		scores = append(scores, KScore{K: k, Accuracy: acc})
		if acc > bestAcc {
			bestK, bestAcc = k, acc
		}
	}

	log.Info().
		Int("best_k", bestK).
		Float64("cv_accuracy", bestAcc).
		Int("grid_size", len(grid)).
		Int("folds", folds).
		Msg("kNN hyperparameter sweep complete")

	return bestK, scores, nil
}
