// Package report renders evaluation results as a text summary,
// per-configuration confusion matrix CSVs and a JSON document, and
// persists each run into the local run history.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gaitlab/internal/eval"
	"gaitlab/internal/storage"

	"github.com/rs/zerolog/log"
)

// Reporter generates all output formats for one run.
type Reporter struct {
	results    *eval.Results
	outputPath string
	store      *storage.Store // optional run history
}

func NewReporter(results *eval.Results, outputPath string, store *storage.Store) *Reporter {
	return &Reporter{results: results, outputPath: outputPath, store: store}
}

// GenerateReport writes every report format and records the run.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}

	if err := r.generateConfusionCSVs(); err != nil {
		return err
	}

	if err := r.generateJSONReport(); err != nil {
		return err
	}

	return nil
}

// generateSummary generates a human-readable summary
func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "GAIT CLASSIFICATION RESULTS\n")
	fmt.Fprintf(file, "===========================\n\n")

	fmt.Fprintf(file, "Run ID: %s\n", r.results.RunID)
	fmt.Fprintf(file, "Period: %s to %s\n",
		r.results.StartedAt.Format("2006-01-02 15:04:05"),
		r.results.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Training trials: %d\n", r.results.TrainSize)
	fmt.Fprintf(file, "Test trials: %d\n", r.results.TestSize)
	fmt.Fprintf(file, "Seed: %d\n\n", r.results.Seed)

	for _, ev := range r.results.Evaluations {
		fmt.Fprintf(file, "%s / %s\n", ev.Strategy, ev.Model)
		fmt.Fprintf(file, "--------------------\n")
		fmt.Fprintf(file, "Accuracy: %.2f%%\n", ev.Accuracy*100)
		if ev.Model == "knn" {
			fmt.Fprintf(file, "Selected k: %d\n", ev.BestK)
		}
		if ev.Strategy == "pca" {
			fmt.Fprintf(file, "Components: %d\n", ev.Components)
		}
		fmt.Fprintf(file, "Training time: %.3fs\n\n", ev.TrainSeconds)

		fmt.Fprintf(file, "Class   Support  Sensitivity  Specificity\n")
		for _, c := range ev.PerClass {
			fmt.Fprintf(file, "%-7s %7d  %10.2f%%  %10.2f%%\n",
				c.Label, c.Support, c.Sensitivity*100, c.Specificity*100)
		}
		fmt.Fprintf(file, "\n")
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

// generateConfusionCSVs writes one confusion matrix CSV per evaluation.
func (r *Reporter) generateConfusionCSVs() error {
	for _, ev := range r.results.Evaluations {
		name := fmt.Sprintf("confusion_%s_%s.csv", ev.Strategy, ev.Model)
		csvPath := filepath.Join(r.outputPath, name)
		file, err := os.Create(csvPath)
		if err != nil {
			return fmt.Errorf("failed to create confusion matrix file: %w", err)
		}

		writer := csv.NewWriter(file)

		header := append([]string{"actual\\predicted"}, ev.Confusion.Labels...)
		if err := writer.Write(header); err != nil {
			file.Close()
			return err
		}

		for i, label := range ev.Confusion.Labels {
			record := []string{label}
			for _, count := range ev.Confusion.Counts[i] {
				record = append(record, strconv.Itoa(count))
			}
			if err := writer.Write(record); err != nil {
				file.Close()
				return err
			}
		}

		writer.Flush()
		if err := writer.Error(); err != nil {
			file.Close()
			return err
		}
		file.Close()

		log.Info().Str("file", csvPath).Msg("Confusion matrix generated")
	}
	return nil
}

// generateJSONReport generates a JSON report with all data and records
// the run in the history store.
func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "results.json")

	report := map[string]interface{}{
		"results":      r.results,
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	if r.store != nil {
		run := storage.Run{
			ID:        r.results.RunID,
			StartedAt: r.results.StartedAt,
			Payload:   data,
		}
		if err := r.store.PutRun(run); err != nil {
			log.Warn().Err(err).Msg("Failed to persist run record, continuing")
		}
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary prints a summary to console
func (r *Reporter) PrintSummary() {
	fmt.Println("\n=== GAIT CLASSIFICATION RESULTS ===")
	fmt.Printf("Train/test trials: %d/%d\n", r.results.TrainSize, r.results.TestSize)
	for _, ev := range r.results.Evaluations {
		extra := ""
		if ev.Model == "knn" {
			extra = fmt.Sprintf(" (k=%d)", ev.BestK)
		}
		fmt.Printf("%-5s / %-6s accuracy: %.2f%%%s\n",
			ev.Strategy, ev.Model, ev.Accuracy*100, extra)
	}
	fmt.Println("===================================")
}
