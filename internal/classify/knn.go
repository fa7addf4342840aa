package classify

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KNN is a k-nearest-neighbor classifier with Euclidean distance and
// majority voting.
type KNN struct {
	k int
	x *mat.Dense
	y []string
}

func NewKNN(k int) *KNN {
	return &KNN{k: k}
}

func (c *KNN) Name() string { return "knn" }

// K reports the configured neighbor count.
func (c *KNN) K() int { return c.k }

// Fit stores the training matrix; kNN defers all work to prediction time.
func (c *KNN) Fit(x *mat.Dense, y []string) error {
	if c.k < 1 {
		return fmt.Errorf("k must be at least 1, got %d", c.k)
	}
	r, _ := x.Dims()
	if r == 0 {
		return fmt.Errorf("empty training set")
	}
	if r != len(y) {
		return fmt.Errorf("matrix has %d rows but %d labels", r, len(y))
	}
	c.x = x
	c.y = y
	return nil
}

// Predict labels each row of x by majority vote among its k nearest
// training rows. When fewer than k training rows exist, all of them vote.
func (c *KNN) Predict(x *mat.Dense) ([]string, error) {
	if c.x == nil {
		return nil, fmt.Errorf("predict called before fit")
	}
	n, d := c.x.Dims()
	qr, qd := x.Dims()
	if qd != d {
		return nil, fmt.Errorf("expected %d feature columns, got %d", d, qd)
	}

	k := c.k
	if k > n {
		k = n
	}

	preds := make([]string, qr)
	query := make([]float64, d)
	train := make([]float64, d)
	dists := make([]float64, n)
	order := make([]int, n)

	for i := 0; i < qr; i++ {
		mat.Row(query, i, x)
		for j := 0; j < n; j++ {
			mat.Row(train, j, c.x)
			dists[j] = floats.Distance(query, train, 2)
			order[j] = j
		}
		sort.Slice(order, func(a, b int) bool {
			if dists[order[a]] != dists[order[b]] {
				return dists[order[a]] < dists[order[b]]
			}
			return order[a] < order[b] // stable under equal distances
		})

		counts := make(map[string]int, k)
		for _, j := range order[:k] {
			counts[c.y[j]]++
		}
		preds[i] = vote(counts)
	}

	return preds, nil
}
