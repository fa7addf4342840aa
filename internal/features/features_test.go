package features

import (
	"math"
	"math/rand"
	"testing"

	"gaitlab/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// syntheticMatrix builds a deterministic full-width observation matrix.
func syntheticMatrix(rows int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(rows, dataset.FeatureColumns, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < dataset.FeatureColumns; j++ {
			x.Set(i, j, rng.NormFloat64()+float64(j%7))
		}
	}
	return x
}

func TestBlockStatsConstantVector(t *testing.T) {
	block := make([]float64, dataset.SamplesPerDirection)
	for i := range block {
		block[i] = 2.5
	}

	mean, std, max := BlockStats(block)
	assert.InDelta(t, 2.5, mean, 1e-12)
	assert.InDelta(t, 0.0, std, 1e-12)
	assert.InDelta(t, 2.5, max, 1e-12)
}

func TestBlockStats(t *testing.T) {
	block := make([]float64, dataset.SamplesPerDirection)
	block[0] = 10 // rest zero

	mean, std, max := BlockStats(block)
	assert.InDelta(t, 10.0/101.0, mean, 1e-12)
	assert.Greater(t, std, 0.0)
	assert.Equal(t, 10.0, max)
}

func TestSummaryTransformShape(t *testing.T) {
	x := syntheticMatrix(7, 1)
	s := NewSummary()
	require.NoError(t, s.Fit(x))

	out, err := s.Transform(x)
	require.NoError(t, err)
	r, c := out.Dims()
	assert.Equal(t, 7, r)
	assert.Equal(t, StatsWidth, c)
}

func TestSummaryPerBlockValues(t *testing.T) {
	x := mat.NewDense(1, dataset.FeatureColumns, nil)
	// Vertical block constant 1, AP block constant -2, ML block constant 0.5.
	for j := 0; j < dataset.SamplesPerDirection; j++ {
		x.Set(0, j, 1)
		x.Set(0, dataset.SamplesPerDirection+j, -2)
		x.Set(0, 2*dataset.SamplesPerDirection+j, 0.5)
	}

	out, err := NewSummary().Transform(x)
	require.NoError(t, err)

	want := []float64{1, 0, 1, -2, 0, -2, 0.5, 0, 0.5}
	for j, w := range want {
		assert.InDelta(t, w, out.At(0, j), 1e-12, "column %d", j)
	}
}

func TestSummaryRejectsWrongWidth(t *testing.T) {
	s := NewSummary()
	_, err := s.Transform(mat.NewDense(3, 10, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "303")
}

func TestCumulativeExplained(t *testing.T) {
	vars := []float64{4, 3, 2, 1}
	cum := cumulativeExplained(vars)

	require.Len(t, cum, 4)
	for i := 1; i < len(cum); i++ {
		assert.GreaterOrEqual(t, cum[i], cum[i-1], "cumulative ratio must be non-decreasing")
	}
	assert.InDelta(t, 1.0, cum[len(cum)-1], 1e-12, "full rank must explain all variance")
	assert.InDelta(t, 0.4, cum[0], 1e-12)
}

func TestComponentsForTarget(t *testing.T) {
	vars := []float64{4, 3, 2, 1}

	testCases := []struct {
		target float64
		want   int
	}{
		{0.3, 1},
		{0.5, 2},
		{0.9, 3},
		{0.95, 4},
		{1.0, 4},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, componentsForTarget(vars, tc.target), "target %.2f", tc.target)
	}
}

func TestPCAFitTransform(t *testing.T) {
	train := syntheticMatrix(40, 1)
	test := syntheticMatrix(10, 2)

	p := NewPCA(0.95, false)
	require.NoError(t, p.Fit(train))

	k := p.Components()
	require.Greater(t, k, 0)
	require.LessOrEqual(t, k, dataset.FeatureColumns)

	trainProj, err := p.Transform(train)
	require.NoError(t, err)
	testProj, err := p.Transform(test)
	require.NoError(t, err)

	r, c := trainProj.Dims()
	assert.Equal(t, 40, r)
	assert.Equal(t, k, c)
	r, c = testProj.Dims()
	assert.Equal(t, 10, r)
	assert.Equal(t, k, c)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.False(t, math.IsNaN(testProj.At(i, j)), "projection produced NaN")
		}
	}
}

func TestPCALowerTargetKeepsFewerComponents(t *testing.T) {
	train := syntheticMatrix(40, 3)

	tight := NewPCA(0.99, false)
	loose := NewPCA(0.5, false)
	require.NoError(t, tight.Fit(train))
	require.NoError(t, loose.Fit(train))

	assert.LessOrEqual(t, loose.Components(), tight.Components())
}

func TestPCALegacyProjectionShape(t *testing.T) {
	train := syntheticMatrix(40, 4)
	test := syntheticMatrix(12, 5)

	p := NewPCA(0.95, true)
	require.NoError(t, p.Fit(train))

	// The refit basis has at most as many axes as the matrix has rows,
	// so a test partition smaller than the retained component count
	// exercises the padded columns.
	require.Greater(t, p.Components(), 12)

	proj, err := p.Transform(test)
	require.NoError(t, err)
	r, c := proj.Dims()
	assert.Equal(t, 12, r)
	assert.Equal(t, p.Components(), c, "legacy projection must keep the training component count")
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.False(t, math.IsNaN(proj.At(i, j)), "projection produced NaN")
		}
	}
}

func TestPCAErrors(t *testing.T) {
	p := NewPCA(0.95, false)

	_, err := p.Transform(syntheticMatrix(5, 1))
	assert.Error(t, err, "transform before fit must fail")

	assert.Error(t, p.Fit(mat.NewDense(5, 10, nil)), "wrong width must fail")
	assert.Error(t, p.Fit(syntheticMatrix(1, 1)), "single row must fail")
}
