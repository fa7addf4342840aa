package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gaitlab/internal/eval"
	"gaitlab/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() *eval.Results {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &eval.Results{
		RunID:      "20240301-100000",
		StartedAt:  started,
		FinishedAt: started.Add(12 * time.Second),
		Strategy:   "both",
		Seed:       1,
		TrainSize:  60,
		TestSize:   20,
		Evaluations: []eval.Evaluation{
			{
				Strategy:   "pca",
				Model:      "knn",
				BestK:      15,
				Components: 7,
				Accuracy:   0.85,
				PerClass: []eval.ClassMetrics{
					{Label: "HC", Support: 12, Sensitivity: 0.9, Specificity: 0.8},
					{Label: "K", Support: 8, Sensitivity: 0.75, Specificity: 0.95},
				},
				Confusion: &eval.ConfusionMatrix{
					Labels: []string{"HC", "K"},
					Counts: [][]int{{11, 1}, {2, 6}},
				},
				TrainSeconds: 0.02,
			},
			{
				Strategy: "stats",
				Model:    "forest",
				Accuracy: 0.9,
				PerClass: []eval.ClassMetrics{
					{Label: "HC", Support: 12, Sensitivity: 1.0, Specificity: 0.75},
					{Label: "K", Support: 8, Sensitivity: 0.75, Specificity: 1.0},
				},
				Confusion: &eval.ConfusionMatrix{
					Labels: []string{"HC", "K"},
					Counts: [][]int{{12, 0}, {2, 6}},
				},
				TrainSeconds: 0.4,
			},
		},
	}
}

func TestGenerateReportFiles(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(sampleResults(), dir, nil)

	require.NoError(t, r.GenerateReport())

	for _, name := range []string{
		"summary.txt",
		"confusion_pca_knn.csv",
		"confusion_stats_forest.csv",
		"results.json",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "expected %s to be written", name)
	}
}

func TestSummaryContents(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(sampleResults(), dir, nil)
	require.NoError(t, r.GenerateReport())

	data, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "Run ID: 20240301-100000")
	assert.Contains(t, text, "Training trials: 60")
	assert.Contains(t, text, "Test trials: 20")
	assert.Contains(t, text, "pca / knn")
	assert.Contains(t, text, "Selected k: 15")
	assert.Contains(t, text, "Components: 7")
	assert.Contains(t, text, "stats / forest")
	assert.Contains(t, text, "Accuracy: 90.00%")
	// forest entries must not report a k
	forestSection := text[strings.Index(text, "stats / forest"):]
	assert.NotContains(t, forestSection, "Selected k")
}

func TestConfusionCSVShape(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(sampleResults(), dir, nil)
	require.NoError(t, r.GenerateReport())

	file, err := os.Open(filepath.Join(dir, "confusion_pca_knn.csv"))
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"actual\\predicted", "HC", "K"}, records[0])
	assert.Equal(t, []string{"HC", "11", "1"}, records[1])
	assert.Equal(t, []string{"K", "2", "6"}, records[2])
}

func TestJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(sampleResults(), dir, nil)
	require.NoError(t, r.GenerateReport())

	data, err := os.ReadFile(filepath.Join(dir, "results.json"))
	require.NoError(t, err)

	var doc struct {
		Results eval.Results `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "20240301-100000", doc.Results.RunID)
	assert.Len(t, doc.Results.Evaluations, 2)
	assert.Equal(t, 15, doc.Results.Evaluations[0].BestK)
}

func TestWriteHistory(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(dir)
	require.NoError(t, err)
	defer store.Close()

	r := NewReporter(sampleResults(), filepath.Join(dir, "out"), store)
	require.NoError(t, r.GenerateReport())

	runs, err := store.RecentRuns(5)
	require.NoError(t, err)

	var buf strings.Builder
	WriteHistory(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "20240301-100000")
	assert.Contains(t, out, "strategy=both")
	assert.Contains(t, out, "evaluations=2")
	assert.Contains(t, out, "best accuracy=90.00%")
}

func TestWriteHistoryEmpty(t *testing.T) {
	var buf strings.Builder
	WriteHistory(&buf, nil)
	assert.Contains(t, buf.String(), "No recorded runs")
}

func TestRunPersistedToStore(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(dir)
	require.NoError(t, err)
	defer store.Close()

	r := NewReporter(sampleResults(), filepath.Join(dir, "out"), store)
	require.NoError(t, r.GenerateReport())

	runs, err := store.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "20240301-100000", runs[0].ID)
	assert.NotEmpty(t, runs[0].Payload)
}
