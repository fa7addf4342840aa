package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gaitlab/internal/eval"
	"gaitlab/internal/storage"
)

// WriteHistory renders recorded runs, most recent first, one line per
// run with its best evaluation accuracy.
func WriteHistory(w io.Writer, runs []storage.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs.")
		return
	}

	for _, run := range runs {
		var doc struct {
			Results eval.Results `json:"results"`
		}
		if err := json.Unmarshal(run.Payload, &doc); err != nil {
			fmt.Fprintf(w, "%s  %s  (unreadable record)\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.ID)
			continue
		}

		best := 0.0
		for _, ev := range doc.Results.Evaluations {
			if ev.Accuracy > best {
				best = ev.Accuracy
			}
		}

		fmt.Fprintf(w, "%s  %s  strategy=%s  evaluations=%d  best accuracy=%.2f%%\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), run.ID,
			doc.Results.Strategy, len(doc.Results.Evaluations), best*100)
	}
}
