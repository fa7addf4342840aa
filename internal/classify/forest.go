package classify

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Forest is a random forest of Gini decision trees: bootstrap-sampled
// training sets and √d candidate features per split, with majority voting
// across trees. A seeded RNG keeps repeated runs identical.
type Forest struct {
	trees int
	rng   *rand.Rand

	estimators []*Tree
}

// NewForest creates a forest with the given ensemble size and seed.
func NewForest(trees int, seed int64) *Forest {
	if trees < 1 {
		trees = 1
	}
	return &Forest{trees: trees, rng: rand.New(rand.NewSource(seed))}
}

func (f *Forest) Name() string { return "forest" }

func (f *Forest) Fit(x *mat.Dense, y []string) error {
	n, d := x.Dims()
	if n == 0 {
		return fmt.Errorf("empty training set")
	}
	if n != len(y) {
		return fmt.Errorf("matrix has %d rows but %d labels", n, len(y))
	}

	maxFeatures := int(math.Sqrt(float64(d)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	f.estimators = make([]*Tree, 0, f.trees)
	sample := make([]int, n)
	for t := 0; t < f.trees; t++ {
		for i := range sample {
			sample[i] = f.rng.Intn(n)
		}

		tree := NewTree(
			WithMaxFeatures(maxFeatures),
			WithRand(rand.New(rand.NewSource(f.rng.Int63()))),
		)
		if err := tree.Fit(rowsSubset(x, sample), labelsSubset(y, sample)); err != nil {
			return fmt.Errorf("tree %d: %w", t, err)
		}
		f.estimators = append(f.estimators, tree)
	}

	return nil
}

func (f *Forest) Predict(x *mat.Dense) ([]string, error) {
	if len(f.estimators) == 0 {
		return nil, fmt.Errorf("predict called before fit")
	}

	r, _ := x.Dims()
	votes := make([]map[string]int, r)
	for i := range votes {
		votes[i] = make(map[string]int)
	}

	for _, tree := range f.estimators {
		preds, err := tree.Predict(x)
		if err != nil {
			return nil, err
		}
		for i, p := range preds {
			votes[i][p]++
		}
	}

	preds := make([]string, r)
	for i := range preds {
		preds[i] = vote(votes[i])
	}
	return preds, nil
}
