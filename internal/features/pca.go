package features

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA projects observations onto the minimal prefix of principal
// components whose cumulative explained-variance ratio reaches the
// configured target.
//
// By default both train and test matrices are projected with the axes fit
// on the training data. The original study refit the decomposition on the
// test matrix itself, which leaks test structure into the projection;
// legacy mode reproduces that behavior for comparison runs and logs a
// warning when used.
type PCA struct {
	target float64
	legacy bool

	components int
	vectors    *mat.Dense // d x components, training-fit axes
	means      []float64  // training column means
}

// NewPCA creates a PCA extractor keeping enough components to explain at
// least target (0 < target <= 1) of the training variance.
func NewPCA(target float64, legacy bool) *PCA {
	return &PCA{target: target, legacy: legacy}
}

func (p *PCA) Name() string { return "pca" }

// Components reports the number of retained components after Fit.
func (p *PCA) Components() int { return p.components }

// Fit computes the principal components of the training matrix and
// retains the minimal prefix covering the variance target.
func (p *PCA) Fit(train *mat.Dense) error {
	if err := checkWidth(train); err != nil {
		return err
	}
	r, d := train.Dims()
	if r < 2 {
		return fmt.Errorf("need at least 2 training rows, got %d", r)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(train, nil); !ok {
		return fmt.Errorf("principal component decomposition failed")
	}

	vars := pc.VarsTo(nil)
	p.components = componentsForTarget(vars, p.target)

	vecs := mat.NewDense(d, len(vars), nil)
	pc.VectorsTo(vecs)
	p.vectors = mat.DenseCopyOf(vecs.Slice(0, d, 0, p.components))

	p.means = columnMeans(train)

	log.Debug().
		Int("components", p.components).
		Float64("target", p.target).
		Float64("explained", cumulativeExplained(vars)[p.components-1]).
		Msg("PCA fit complete")

	return nil
}

// Transform projects x onto the retained axes. In legacy mode the
// decomposition is refit on x itself, truncated to the training component
// count so downstream shapes still match.
func (p *PCA) Transform(x *mat.Dense) (*mat.Dense, error) {
	if p.vectors == nil {
		return nil, fmt.Errorf("transform called before fit")
	}
	if err := checkWidth(x); err != nil {
		return nil, err
	}

	vectors, means := p.vectors, p.means
	if p.legacy {
		log.Warn().Msg("Legacy test projection active: PCA axes refit on the transformed matrix (known leakage, kept for study replication)")
		var err error
		vectors, means, err = p.refit(x)
		if err != nil {
			return nil, err
		}
	}

	centered := centerColumns(x, means)
	r, _ := x.Dims()
	proj := mat.NewDense(r, p.components, nil)
	proj.Mul(centered, vectors)
	return proj, nil
}

// refit recomputes axes on the given matrix, as the original study did
// for the test set.
func (p *PCA) refit(x *mat.Dense) (*mat.Dense, []float64, error) {
	r, d := x.Dims()
	if r < 2 {
		return nil, nil, fmt.Errorf("need at least 2 rows to refit, got %d", r)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, nil, fmt.Errorf("principal component decomposition failed")
	}

	vars := pc.VarsTo(nil)
	vecs := mat.NewDense(d, len(vars), nil)
	pc.VectorsTo(vecs)

	// A refit on fewer rows than the training fit retained yields a
	// lower-rank basis. Copy the axes that exist and leave the rest as
	// zero columns so projected shapes still match the training fit.
	vectors := mat.NewDense(d, p.components, nil)
	vectors.Copy(vecs)

	return vectors, columnMeans(x), nil
}

// componentsForTarget returns the minimal prefix length whose cumulative
// explained-variance ratio reaches target. Variances arrive in decreasing
// order from the decomposition. The comparison stays in the variance
// domain: dividing each term by the total accumulates rounding error
// that can push an exact boundary just below the target.
func componentsForTarget(vars []float64, target float64) int {
	total := floats.Sum(vars)
	if total == 0 {
		return 1
	}
	cum := 0.0
	for i, v := range vars {
		cum += v
		if cum >= target*total {
			return i + 1
		}
	}
	return len(vars)
}

// cumulativeExplained returns the running explained-variance ratio for a
// variance spectrum.
func cumulativeExplained(vars []float64) []float64 {
	total := floats.Sum(vars)
	out := make([]float64, len(vars))
	cum := 0.0
	for i, v := range vars {
		if total > 0 {
			cum += v / total
		}
		out[i] = cum
	}
	return out
}

func columnMeans(x *mat.Dense) []float64 {
	r, c := x.Dims()
	means := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		means[j] = stat.Mean(col, nil)
	}
	return means
}

func centerColumns(x *mat.Dense, means []float64) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, x.At(i, j)-means[j])
		}
	}
	return out
}
