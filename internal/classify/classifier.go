// Package classify implements the two classifiers evaluated by the
// pipeline, a k-nearest-neighbor voter and a random forest, plus the
// cross-validated sweep used to pick k. Both operate on gonum matrices
// with string class labels.
package classify

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Classifier maps feature vectors to predicted class labels.
type Classifier interface {
	Fit(x *mat.Dense, y []string) error
	Predict(x *mat.Dense) ([]string, error)
	Name() string
}

// Tracker defines the metrics methods needed by the classifiers.
type Tracker interface {
	ModelTrainedInc()
	CVAccuracyObserve(float64)
}

// Accuracy is the fraction of matching positions between two label
// slices.
func Accuracy(actual, predicted []string) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0
	}
	correct := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(actual))
}

// vote returns the majority label; ties break to the lexicographically
// smallest label so repeated runs stay deterministic.
func vote(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	best, bestCount := "", -1
	for _, l := range labels {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}

// rowsSubset copies the selected rows of x into a new matrix.
func rowsSubset(x *mat.Dense, idx []int) *mat.Dense {
	_, c := x.Dims()
	out := mat.NewDense(len(idx), c, nil)
	row := make([]float64, c)
	for i, j := range idx {
		mat.Row(row, j, x)
		out.SetRow(i, row)
	}
	return out
}

func labelsSubset(y []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
