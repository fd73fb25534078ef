package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScore forwards the score to all sinks, returning the first error encountered.
func (m *MultiSink) RecordScore(ev ScoreEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordScore(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordFit forwards fit events to sinks implementing FitRecorder.
func (m *MultiSink) RecordFit(ev FitEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FitRecorder); ok {
			if err := rec.RecordFit(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPredict forwards predict events.
func (m *MultiSink) RecordPredict(ev PredictEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PredictRecorder); ok {
			if err := rec.RecordPredict(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCheck forwards harness outcomes.
func (m *MultiSink) RecordCheck(ev CheckEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CheckRecorder); ok {
			if err := rec.RecordCheck(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
