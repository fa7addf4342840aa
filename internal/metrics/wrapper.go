package metrics

// Wrapper exposes the pipeline-facing metric methods. Consumer packages
// declare their own small tracker interfaces to avoid circular imports;
// a nil *Wrapper is safe everywhere so tests can pass nil.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) DownloadInc() {
	if w != nil && w.m != nil {
		w.m.DownloadsTotal.Inc()
	}
}

func (w *Wrapper) DownloadFailureInc() {
	if w != nil && w.m != nil {
		w.m.DownloadFailures.Inc()
	}
}

func (w *Wrapper) CacheHitInc() {
	if w != nil && w.m != nil {
		w.m.CacheHits.Inc()
	}
}

func (w *Wrapper) RowsLoadedAdd(n int) {
	if w != nil && w.m != nil {
		w.m.RowsLoaded.Add(float64(n))
	}
}

func (w *Wrapper) RowRejectedInc() {
	if w != nil && w.m != nil {
		w.m.RowsRejected.Inc()
	}
}

func (w *Wrapper) TrialsJoinedAdd(n int) {
	if w != nil && w.m != nil {
		w.m.TrialsJoined.Add(float64(n))
	}
}

func (w *Wrapper) ModelTrainedInc() {
	if w != nil && w.m != nil {
		w.m.ModelsTrained.Inc()
	}
}

func (w *Wrapper) PredictionsAdd(n int) {
	if w != nil && w.m != nil {
		w.m.PredictionsTotal.Add(float64(n))
	}
}

func (w *Wrapper) FeatureErrorInc() {
	if w != nil && w.m != nil {
		w.m.FeatureErrors.Inc()
	}
}

func (w *Wrapper) TrainingObserve(seconds float64) {
	if w != nil && w.m != nil {
		w.m.TrainingDuration.Observe(seconds)
	}
}

func (w *Wrapper) CVAccuracyObserve(accuracy float64) {
	if w != nil && w.m != nil {
		w.m.CVAccuracy.Observe(accuracy)
	}
}
