package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Files names the four dataset tables inside the data directory.
type Files struct {
	Vertical string
	AP       string
	ML       string
	Metadata string
}

// SkipCounts tallies rows and trials dropped during the join.
type SkipCounts struct {
	MalformedRows    int // rows with unparseable ids or samples
	IncompleteTrials int // trials missing from one of the three force tables
	MissingMetadata  int // trials whose session has no metadata row
}

// Table is the joined dataset: exactly one Observation per trial that
// appears in all three force tables and has session metadata.
type Table struct {
	Observations []Observation
	Skipped      SkipCounts
}

// Split partitions the table by the externally supplied TRAIN/TEST flags.
// The flags are canonical and never recomputed here; trials flagged
// neither way are excluded and counted.
func (t *Table) Split() (train, test []Observation, excluded int) {
	for _, o := range t.Observations {
		switch {
		case o.Train:
			train = append(train, o)
		case o.Test:
			test = append(test, o)
		default:
			excluded++
		}
	}
	return train, test, excluded
}

// Loader parses the four CSV tables and joins them on subject/session/trial.
type Loader struct {
	dir     string
	files   Files
	tracker Tracker
}

func NewLoader(dir string, files Files, tracker Tracker) *Loader {
	return &Loader{dir: dir, files: files, tracker: tracker}
}

type sessionMeta struct {
	label Label
	side  string
	train bool
	test  bool
}

// Load reads the three force tables and the metadata table and joins them.
// Duplicate trial keys inside a force table are a hard error; malformed
// rows and trials without a complete join are dropped and counted.
func (l *Loader) Load() (*Table, error) {
	table := &Table{}

	vertical, err := l.loadForceTable(l.files.Vertical, table)
	if err != nil {
		return nil, fmt.Errorf("vertical table: %w", err)
	}
	ap, err := l.loadForceTable(l.files.AP, table)
	if err != nil {
		return nil, fmt.Errorf("anteroposterior table: %w", err)
	}
	ml, err := l.loadForceTable(l.files.ML, table)
	if err != nil {
		return nil, fmt.Errorf("mediolateral table: %w", err)
	}

	meta, err := l.loadMetadata(table)
	if err != nil {
		return nil, fmt.Errorf("metadata table: %w", err)
	}

	// Deterministic join order.
	keys := make([]TrialKey, 0, len(vertical))
	for k := range vertical {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Session != b.Session {
			return a.Session < b.Session
		}
		return a.Trial < b.Trial
	})

	for _, key := range keys {
		apBlock, okAP := ap[key]
		mlBlock, okML := ml[key]
		if !okAP || !okML {
			table.Skipped.IncompleteTrials++
			if l.tracker != nil {
				l.tracker.RowRejectedInc()
			}
			continue
		}

		m, okMeta := meta[SessionKey{Subject: key.Subject, Session: key.Session}]
		if !okMeta {
			table.Skipped.MissingMetadata++
			if l.tracker != nil {
				l.tracker.RowRejectedInc()
			}
			continue
		}

		table.Observations = append(table.Observations, Observation{
			Key:             key,
			Label:           m.label,
			AffectedSide:    m.side,
			Train:           m.train,
			Test:            m.test,
			Vertical:        vertical[key],
			Anteroposterior: apBlock,
			Mediolateral:    mlBlock,
		})
	}

	if l.tracker != nil {
		l.tracker.TrialsJoinedAdd(len(table.Observations))
	}

	log.Info().
		Int("trials", len(table.Observations)).
		Int("malformed_rows", table.Skipped.MalformedRows).
		Int("incomplete_trials", table.Skipped.IncompleteTrials).
		Int("missing_metadata", table.Skipped.MissingMetadata).
		Msg("Dataset loaded")

	return table, nil
}

// loadForceTable parses one direction table into trial-keyed 101-sample
// blocks. The header must carry the three id columns followed by exactly
// 101 sample columns.
func (l *Loader) loadForceTable(name string, table *Table) (map[TrialKey][SamplesPerDirection]float64, error) {
	path := filepath.Join(l.dir, name)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := make(map[string]int)
	for i, col := range header {
		indices[col] = i
	}
	subjectIdx, ok := indices["SUBJECT_ID"]
	if !ok {
		return nil, fmt.Errorf("missing SUBJECT_ID column")
	}
	sessionIdx, ok := indices["SESSION_ID"]
	if !ok {
		return nil, fmt.Errorf("missing SESSION_ID column")
	}
	trialIdx, ok := indices["TRIAL_ID"]
	if !ok {
		return nil, fmt.Errorf("missing TRIAL_ID column")
	}

	// Sample columns are everything except the three ids, in file order.
	sampleIdx := make([]int, 0, len(header)-3)
	for i := range header {
		if i != subjectIdx && i != sessionIdx && i != trialIdx {
			sampleIdx = append(sampleIdx, i)
		}
	}
	if len(sampleIdx) != SamplesPerDirection {
		return nil, fmt.Errorf("expected %d sample columns, got %d", SamplesPerDirection, len(sampleIdx))
	}

	blocks := make(map[TrialKey][SamplesPerDirection]float64)
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A row with the wrong field count is one bad row, not the
			// end of the table.
			if errors.Is(err, csv.ErrFieldCount) {
				rows++
				table.Skipped.MalformedRows++
				if l.tracker != nil {
					l.tracker.RowRejectedInc()
				}
				continue
			}
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows++

		key, err := parseKey(record, subjectIdx, sessionIdx, trialIdx)
		if err != nil {
			table.Skipped.MalformedRows++
			if l.tracker != nil {
				l.tracker.RowRejectedInc()
			}
			continue
		}
		if _, dup := blocks[key]; dup {
			return nil, fmt.Errorf("duplicate trial %s", key)
		}

		var block [SamplesPerDirection]float64
		bad := false
		for i, idx := range sampleIdx {
			v, err := strconv.ParseFloat(record[idx], 64)
			if err != nil {
				bad = true
				break
			}
			block[i] = v
		}
		if bad {
			table.Skipped.MalformedRows++
			if l.tracker != nil {
				l.tracker.RowRejectedInc()
			}
			continue
		}

		blocks[key] = block
	}

	if l.tracker != nil {
		l.tracker.RowsLoadedAdd(rows)
	}

	return blocks, nil
}

// loadMetadata parses the per-session metadata table: class label,
// affected side and the canonical train/test membership flags.
func (l *Loader) loadMetadata(table *Table) (map[SessionKey]sessionMeta, error) {
	path := filepath.Join(l.dir, l.files.Metadata)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // metadata carries many optional columns

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := make(map[string]int)
	for i, col := range header {
		indices[col] = i
	}
	for _, col := range []string{"SUBJECT_ID", "SESSION_ID", "CLASS_LABEL", "TRAIN", "TEST"} {
		if _, ok := indices[col]; !ok {
			return nil, fmt.Errorf("missing %s column", col)
		}
	}
	sideIdx, hasSide := indices["AFFECTED_SIDE"]

	// Widest column any row must carry to be usable.
	maxIdx := 0
	for _, col := range []string{"SUBJECT_ID", "SESSION_ID", "CLASS_LABEL", "TRAIN", "TEST"} {
		if indices[col] > maxIdx {
			maxIdx = indices[col]
		}
	}

	meta := make(map[SessionKey]sessionMeta)
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows++

		if len(record) <= maxIdx {
			table.Skipped.MalformedRows++
			if l.tracker != nil {
				l.tracker.RowRejectedInc()
			}
			continue
		}

		subject, err1 := strconv.ParseInt(record[indices["SUBJECT_ID"]], 10, 64)
		session, err2 := strconv.ParseInt(record[indices["SESSION_ID"]], 10, 64)
		if err1 != nil || err2 != nil {
			table.Skipped.MalformedRows++
			if l.tracker != nil {
				l.tracker.RowRejectedInc()
			}
			continue
		}

		label, err := ParseLabel(record[indices["CLASS_LABEL"]])
		if err != nil {
			table.Skipped.MalformedRows++
			if l.tracker != nil {
				l.tracker.RowRejectedInc()
			}
			continue
		}

		key := SessionKey{Subject: subject, Session: session}
		if _, dup := meta[key]; dup {
			return nil, fmt.Errorf("duplicate session %d/%d", subject, session)
		}

		side := ""
		if hasSide && sideIdx < len(record) {
			side = record[sideIdx]
		}

		meta[key] = sessionMeta{
			label: label,
			side:  side,
			train: record[indices["TRAIN"]] == "1",
			test:  record[indices["TEST"]] == "1",
		}
	}

	if l.tracker != nil {
		l.tracker.RowsLoadedAdd(rows)
	}

	return meta, nil
}

func parseKey(record []string, subjectIdx, sessionIdx, trialIdx int) (TrialKey, error) {
	subject, err := strconv.ParseInt(record[subjectIdx], 10, 64)
	if err != nil {
		return TrialKey{}, err
	}
	session, err := strconv.ParseInt(record[sessionIdx], 10, 64)
	if err != nil {
		return TrialKey{}, err
	}
	trial, err := strconv.ParseInt(record[trialIdx], 10, 64)
	if err != nil {
		return TrialKey{}, err
	}
	return TrialKey{Subject: subject, Session: session, Trial: trial}, nil
}
