// Package eval runs the feature-strategy × classifier evaluation grid
// and derives confusion matrices with accuracy, sensitivity and
// specificity per class.
package eval

import "sort"

// ConfusionMatrix counts predicted labels against actual labels.
// Counts[i][j] is the number of test rows with actual label Labels[i]
// predicted as Labels[j]; row i therefore sums to the true class count.
type ConfusionMatrix struct {
	Labels []string `json:"labels"`
	Counts [][]int  `json:"counts"`
}

// NewConfusionMatrix builds the matrix over the sorted union of labels
// seen in either slice.
func NewConfusionMatrix(actual, predicted []string) *ConfusionMatrix {
	seen := make(map[string]bool)
	for _, l := range actual {
		seen[l] = true
	}
	for _, l := range predicted {
		seen[l] = true
	}

	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range actual {
		counts[index[actual[i]]][index[predicted[i]]]++
	}

	return &ConfusionMatrix{Labels: labels, Counts: counts}
}

// Total is the number of classified rows.
func (m *ConfusionMatrix) Total() int {
	total := 0
	for _, row := range m.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// RowTotal is the actual count of class i, the support.
func (m *ConfusionMatrix) RowTotal(i int) int {
	total := 0
	for _, c := range m.Counts[i] {
		total += c
	}
	return total
}

// ColTotal is the predicted count of class j.
func (m *ConfusionMatrix) ColTotal(j int) int {
	total := 0
	for _, row := range m.Counts {
		total += row[j]
	}
	return total
}

// Accuracy is the fraction of rows on the diagonal.
func (m *ConfusionMatrix) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	correct := 0
	for i := range m.Counts {
		correct += m.Counts[i][i]
	}
	return float64(correct) / float64(total)
}

func (m *ConfusionMatrix) index(label string) int {
	for i, l := range m.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Sensitivity is the true-positive rate of a class: correct predictions
// over actual occurrences.
func (m *ConfusionMatrix) Sensitivity(label string) float64 {
	i := m.index(label)
	if i < 0 {
		return 0
	}
	support := m.RowTotal(i)
	if support == 0 {
		return 0
	}
	return float64(m.Counts[i][i]) / float64(support)
}

// Specificity is the true-negative rate of a class: rows of other classes
// not predicted as it.
func (m *ConfusionMatrix) Specificity(label string) float64 {
	i := m.index(label)
	if i < 0 {
		return 0
	}
	negatives := m.Total() - m.RowTotal(i)
	if negatives == 0 {
		return 0
	}
	falsePositives := m.ColTotal(i) - m.Counts[i][i]
	return float64(negatives-falsePositives) / float64(negatives)
}
