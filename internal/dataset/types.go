// Package dataset loads the GaitRec-style ground reaction force tables
// (vertical, anteroposterior and mediolateral force CSVs plus session
// metadata), joins them on subject/session/trial identifiers and exposes
// the canonical train/test partition.
package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	// SamplesPerDirection is the number of normalized force samples per
	// direction block (stance phase resampled to 101 points).
	SamplesPerDirection = 101

	// FeatureColumns is the width of a full observation row: three
	// direction blocks of 101 samples each.
	FeatureColumns = 3 * SamplesPerDirection
)

// Label is the gait class assigned to a session.
type Label string

const (
	LabelHealthy   Label = "HC" // healthy control
	LabelHip       Label = "H"
	LabelKnee      Label = "K"
	LabelAnkle     Label = "A"
	LabelCalcaneus Label = "C"
)

// Labels lists all known class labels in canonical order.
var Labels = []Label{LabelHealthy, LabelHip, LabelKnee, LabelAnkle, LabelCalcaneus}

// ParseLabel validates a class label read from the metadata table.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown class label %q", s)
}

// TrialKey identifies a single gait trial across all four tables.
type TrialKey struct {
	Subject int64
	Session int64
	Trial   int64
}

func (k TrialKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Subject, k.Session, k.Trial)
}

// SessionKey identifies a recording session, the granularity of the
// metadata table.
type SessionKey struct {
	Subject int64
	Session int64
}

// Observation is one gait trial joined with its session metadata.
// Observations are read once and never mutated for the duration of a run.
type Observation struct {
	Key          TrialKey
	Label        Label
	AffectedSide string
	Train        bool
	Test         bool

	Vertical        [SamplesPerDirection]float64
	Anteroposterior [SamplesPerDirection]float64
	Mediolateral    [SamplesPerDirection]float64
}

// Row returns the 303-column feature row: vertical, anteroposterior and
// mediolateral blocks concatenated in that order.
func (o *Observation) Row() []float64 {
	row := make([]float64, 0, FeatureColumns)
	row = append(row, o.Vertical[:]...)
	row = append(row, o.Anteroposterior[:]...)
	row = append(row, o.Mediolateral[:]...)
	return row
}

// Matrix builds the dense 303-column design matrix for a set of
// observations together with the parallel label slice.
func Matrix(obs []Observation) (*mat.Dense, []string) {
	if len(obs) == 0 {
		return nil, nil
	}
	x := mat.NewDense(len(obs), FeatureColumns, nil)
	y := make([]string, len(obs))
	for i := range obs {
		x.SetRow(i, obs[i].Row())
		y[i] = string(obs[i].Label)
	}
	return x, y
}
