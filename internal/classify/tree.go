package classify

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Tree is a CART-style decision tree splitting on Gini impurity. It is
// the base estimator of the random forest but usable on its own.
type Tree struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	maxFeatures     int // 0 means all features
	rng             *rand.Rand

	cols int
	root *treeNode
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	label     string // leaf prediction when left == nil
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

func WithMaxDepth(d int) TreeOption {
	return func(t *Tree) { t.maxDepth = d }
}

func WithMinSamplesSplit(n int) TreeOption {
	return func(t *Tree) { t.minSamplesSplit = n }
}

// WithMaxFeatures limits each split to a random subset of m candidate
// features, the source of randomness in forest estimators.
func WithMaxFeatures(m int) TreeOption {
	return func(t *Tree) { t.maxFeatures = m }
}

func WithRand(rng *rand.Rand) TreeOption {
	return func(t *Tree) { t.rng = rng }
}

func NewTree(opts ...TreeOption) *Tree {
	t := &Tree{minSamplesSplit: 2}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewSource(1))
	}
	return t
}

func (t *Tree) Name() string { return "tree" }

func (t *Tree) Fit(x *mat.Dense, y []string) error {
	r, c := x.Dims()
	if r == 0 {
		return fmt.Errorf("empty training set")
	}
	if r != len(y) {
		return fmt.Errorf("matrix has %d rows but %d labels", r, len(y))
	}

	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = mat.Row(nil, i, x)
	}

	idx := make([]int, r)
	for i := range idx {
		idx[i] = i
	}

	t.cols = c
	t.root = t.build(rows, y, idx, 0)
	return nil
}

func (t *Tree) Predict(x *mat.Dense) ([]string, error) {
	if t.root == nil {
		return nil, fmt.Errorf("predict called before fit")
	}
	r, c := x.Dims()
	if c != t.cols {
		return nil, fmt.Errorf("expected %d feature columns, got %d", t.cols, c)
	}

	preds := make([]string, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, x)
		preds[i] = t.predictRow(row)
	}
	return preds, nil
}

func (t *Tree) predictRow(row []float64) string {
	node := t.root
	for node.left != nil {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.label
}

func (t *Tree) build(rows [][]float64, y []string, idx []int, depth int) *treeNode {
	counts := make(map[string]int)
	for _, i := range idx {
		counts[y[i]]++
	}

	if len(counts) == 1 ||
		len(idx) < t.minSamplesSplit ||
		(t.maxDepth > 0 && depth >= t.maxDepth) {
		return &treeNode{label: vote(counts)}
	}

	feature, threshold, ok := t.bestSplit(rows, y, idx)
	if !ok {
		return &treeNode{label: vote(counts)}
	}

	var left, right []int
	for _, i := range idx {
		if rows[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{label: vote(counts)}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.build(rows, y, left, depth+1),
		right:     t.build(rows, y, right, depth+1),
	}
}

// bestSplit searches the candidate features for the threshold with the
// lowest weighted Gini impurity. ok is false when no split separates the
// samples.
func (t *Tree) bestSplit(rows [][]float64, y []string, idx []int) (feature int, threshold float64, ok bool) {
	bestGini := giniOf(y, idx) // a split must improve on the parent
	n := float64(len(idx))

	order := make([]int, len(idx))

	for _, f := range t.candidateFeatures() {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return rows[order[a]][f] < rows[order[b]][f]
		})

		leftCounts := make(map[string]int)
		rightCounts := make(map[string]int)
		for _, i := range order {
			rightCounts[y[i]]++
		}

		for pos := 0; pos < len(order)-1; pos++ {
			label := y[order[pos]]
			leftCounts[label]++
			rightCounts[label]--

			cur, next := rows[order[pos]][f], rows[order[pos+1]][f]
			if cur == next {
				continue // no threshold separates equal values
			}

			nl := float64(pos + 1)
			nr := n - nl
			g := (nl*giniCounts(leftCounts, nl) + nr*giniCounts(rightCounts, nr)) / n
			if g < bestGini {
				bestGini = g
				feature = f
				threshold = (cur + next) / 2
				ok = true
			}
		}
	}

	return feature, threshold, ok
}

// candidateFeatures returns the feature indices considered at a split:
// all of them, or a random subset when maxFeatures is set.
func (t *Tree) candidateFeatures() []int {
	if t.maxFeatures <= 0 || t.maxFeatures >= t.cols {
		all := make([]int, t.cols)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return t.rng.Perm(t.cols)[:t.maxFeatures]
}

func giniOf(y []string, idx []int) float64 {
	counts := make(map[string]int)
	for _, i := range idx {
		counts[y[i]]++
	}
	return giniCounts(counts, float64(len(idx)))
}

func giniCounts(counts map[string]int, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / n
		g -= p * p
	}
	return g
}
