package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forceHeader(prefix string) string {
	cols := []string{"SUBJECT_ID", "SESSION_ID", "TRIAL_ID"}
	for i := 1; i <= SamplesPerDirection; i++ {
		cols = append(cols, fmt.Sprintf("%s_%d", prefix, i))
	}
	return strings.Join(cols, ",")
}

func forceRow(subject, session, trial int, value float64) string {
	cols := []string{
		fmt.Sprintf("%d", subject),
		fmt.Sprintf("%d", session),
		fmt.Sprintf("%d", trial),
	}
	for i := 0; i < SamplesPerDirection; i++ {
		cols = append(cols, fmt.Sprintf("%g", value))
	}
	return strings.Join(cols, ",")
}

func writeFile(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

var testFiles = Files{
	Vertical: "v.csv",
	AP:       "ap.csv",
	ML:       "ml.csv",
	Metadata: "meta.csv",
}

func writeDataset(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, dir, testFiles.Vertical,
		forceHeader("F_V_PRO"),
		forceRow(1, 1, 1, 0.5),
		forceRow(1, 1, 2, 0.6),
		forceRow(2, 3, 1, 0.7),
		forceRow(9, 9, 9, 0.1), // no AP/ML counterpart
	)
	writeFile(t, dir, testFiles.AP,
		forceHeader("F_AP_PRO"),
		forceRow(1, 1, 1, -0.1),
		forceRow(1, 1, 2, -0.2),
		forceRow(2, 3, 1, -0.3),
	)
	writeFile(t, dir, testFiles.ML,
		forceHeader("F_ML_PRO"),
		forceRow(1, 1, 1, 0.01),
		forceRow(1, 1, 2, 0.02),
		forceRow(2, 3, 1, 0.03),
	)
	writeFile(t, dir, testFiles.Metadata,
		"SUBJECT_ID,SESSION_ID,CLASS_LABEL,AFFECTED_SIDE,TRAIN,TEST",
		"1,1,HC,,1,0",
		"2,3,K,L,0,1",
	)
}

func TestLoadJoinsOneRowPerTrial(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	table, err := NewLoader(dir, testFiles, nil).Load()
	require.NoError(t, err)

	// Three trials survive the join, each exactly once.
	require.Len(t, table.Observations, 3)
	seen := make(map[TrialKey]bool)
	for _, o := range table.Observations {
		assert.False(t, seen[o.Key], "trial %s joined twice", o.Key)
		seen[o.Key] = true
	}

	assert.Equal(t, 1, table.Skipped.IncompleteTrials)
	assert.Equal(t, 0, table.Skipped.MissingMetadata)

	first := table.Observations[0]
	assert.Equal(t, TrialKey{Subject: 1, Session: 1, Trial: 1}, first.Key)
	assert.Equal(t, LabelHealthy, first.Label)
	assert.InDelta(t, 0.5, first.Vertical[0], 1e-12)
	assert.InDelta(t, -0.1, first.Anteroposterior[50], 1e-12)
	assert.InDelta(t, 0.01, first.Mediolateral[100], 1e-12)
}

func TestLoadDuplicateTrialFails(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	writeFile(t, dir, testFiles.Vertical,
		forceHeader("F_V_PRO"),
		forceRow(1, 1, 1, 0.5),
		forceRow(1, 1, 1, 0.6), // duplicate key
	)

	_, err := NewLoader(dir, testFiles, nil).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate trial")
}

func TestLoadRejectsMalformedFloats(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	badRow := forceRow(5, 5, 5, 0.5)
	badRow = strings.Replace(badRow, "0.5", "not-a-number", 1)
	writeFile(t, dir, testFiles.Vertical,
		forceHeader("F_V_PRO"),
		forceRow(1, 1, 1, 0.5),
		badRow,
	)

	table, err := NewLoader(dir, testFiles, nil).Load()
	require.NoError(t, err)
	assert.Equal(t, 1, table.Skipped.MalformedRows)
	for _, o := range table.Observations {
		assert.NotEqual(t, int64(5), o.Key.Subject)
	}
}

func TestLoadShortRowDoesNotTruncateTable(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	// A row with the wrong field count in the middle of the table must
	// be counted and skipped; every row after it still loads.
	writeFile(t, dir, testFiles.Vertical,
		forceHeader("F_V_PRO"),
		forceRow(1, 1, 1, 0.5),
		"1,1",
		forceRow(1, 1, 2, 0.6),
		forceRow(2, 3, 1, 0.7),
	)

	table, err := NewLoader(dir, testFiles, nil).Load()
	require.NoError(t, err)
	require.Len(t, table.Observations, 3, "trials after the short row must survive")
	assert.Equal(t, 1, table.Skipped.MalformedRows)
}

func TestLoadUnparseableCSVFails(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	writeFile(t, dir, testFiles.Vertical,
		forceHeader("F_V_PRO"),
		forceRow(1, 1, 1, 0.5),
		`1,"1`, // unterminated quote
	)

	_, err := NewLoader(dir, testFiles, nil).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read CSV row")
}

func TestLoadMetadataShortRowSkipped(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	writeFile(t, dir, testFiles.Metadata,
		"SUBJECT_ID,SESSION_ID,CLASS_LABEL,AFFECTED_SIDE,TRAIN,TEST",
		"1,1,HC,,1,0",
		"7,7",
		"2,3,K,L,0,1",
	)

	table, err := NewLoader(dir, testFiles, nil).Load()
	require.NoError(t, err)
	require.Len(t, table.Observations, 3, "sessions after the short row must survive")
	assert.Equal(t, 1, table.Skipped.MalformedRows)
}

func TestLoadWrongSampleCountFails(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	writeFile(t, dir, testFiles.Vertical,
		"SUBJECT_ID,SESSION_ID,TRIAL_ID,F_V_PRO_1,F_V_PRO_2",
		"1,1,1,0.5,0.6",
	)

	_, err := NewLoader(dir, testFiles, nil).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample columns")
}

func TestLoadMissingMetadataSkipsTrial(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	writeFile(t, dir, testFiles.Metadata,
		"SUBJECT_ID,SESSION_ID,CLASS_LABEL,AFFECTED_SIDE,TRAIN,TEST",
		"1,1,HC,,1,0", // session 2/3 removed
	)

	table, err := NewLoader(dir, testFiles, nil).Load()
	require.NoError(t, err)
	require.Len(t, table.Observations, 2)
	assert.Equal(t, 1, table.Skipped.MissingMetadata)
}

func TestSplitUsesSuppliedFlags(t *testing.T) {
	table := &Table{Observations: []Observation{
		{Key: TrialKey{1, 1, 1}, Train: true},
		{Key: TrialKey{1, 1, 2}, Train: true},
		{Key: TrialKey{2, 2, 1}, Test: true},
		{Key: TrialKey{3, 3, 1}}, // flagged neither way
	}}

	train, test, excluded := table.Split()
	assert.Len(t, train, 2)
	assert.Len(t, test, 1)
	assert.Equal(t, 1, excluded)
}

func TestMatrixShape(t *testing.T) {
	obs := []Observation{
		{Label: LabelHealthy},
		{Label: LabelKnee},
	}
	obs[0].Vertical[0] = 1.5
	obs[1].Mediolateral[100] = -2.5

	x, y := Matrix(obs)
	r, c := x.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, FeatureColumns, c)
	assert.Equal(t, []string{"HC", "K"}, y)
	assert.Equal(t, 1.5, x.At(0, 0))
	assert.Equal(t, -2.5, x.At(1, FeatureColumns-1))
}

func TestParseLabel(t *testing.T) {
	testCases := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"HC", LabelHealthy, false},
		{"H", LabelHip, false},
		{"K", LabelKnee, false},
		{"A", LabelAnkle, false},
		{"C", LabelCalcaneus, false},
		{"X", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		got, err := ParseLabel(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}
