package features

import (
	"gaitlab/internal/dataset"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StatsWidth is the width of a summary-statistics feature vector:
// mean, standard deviation and maximum for each of the three direction
// blocks.
const StatsWidth = 9

// Summary is the stateless summary-statistics extractor.
type Summary struct{}

func NewSummary() *Summary { return &Summary{} }

func (s *Summary) Name() string { return "stats" }

// Fit only validates the training shape; the extractor carries no state.
func (s *Summary) Fit(train *mat.Dense) error {
	return checkWidth(train)
}

// Transform reduces each row to the 9 summary statistics, one
// mean/std/max triple per direction block.
func (s *Summary) Transform(x *mat.Dense) (*mat.Dense, error) {
	if err := checkWidth(x); err != nil {
		return nil, err
	}

	r, _ := x.Dims()
	out := mat.NewDense(r, StatsWidth, nil)
	row := make([]float64, dataset.FeatureColumns)
	for i := 0; i < r; i++ {
		mat.Row(row, i, x)
		for b := 0; b < 3; b++ {
			block := row[b*dataset.SamplesPerDirection : (b+1)*dataset.SamplesPerDirection]
			mean, std, max := BlockStats(block)
			out.Set(i, b*3+0, mean)
			out.Set(i, b*3+1, std)
			out.Set(i, b*3+2, max)
		}
	}
	return out, nil
}

// BlockStats computes the mean, sample standard deviation and maximum of
// one direction block.
func BlockStats(block []float64) (mean, std, max float64) {
	mean = stat.Mean(block, nil)
	std = stat.StdDev(block, nil)
	max = floats.Max(block)
	return mean, std, max
}
