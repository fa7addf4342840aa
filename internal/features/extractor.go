// Package features turns joined 303-column force observations into the
// two interchangeable feature representations used by the classifiers: a
// principal-component projection and per-direction summary statistics.
package features

import (
	"fmt"

	"gaitlab/internal/dataset"

	"gonum.org/v1/gonum/mat"
)

// Extractor is a feature extraction strategy. Fit learns any parameters
// from the training matrix; Transform maps a correctly-shaped matrix into
// feature space.
type Extractor interface {
	Fit(train *mat.Dense) error
	Transform(x *mat.Dense) (*mat.Dense, error)
	Name() string
}

// checkWidth enforces the one shape contract both strategies share: the
// input must be the full 303-column observation matrix.
func checkWidth(x *mat.Dense) error {
	if x == nil {
		return fmt.Errorf("nil input matrix")
	}
	_, c := x.Dims()
	if c != dataset.FeatureColumns {
		return fmt.Errorf("expected %d columns, got %d", dataset.FeatureColumns, c)
	}
	return nil
}
