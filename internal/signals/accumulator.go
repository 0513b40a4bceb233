package signals

import "sync"

// Accumulator collects signals across an onboarding session as the user
// answers one step at a time. Once a flag is set it stays set.
//
// It is safe for concurrent use, though a single onboarding session
// normally feeds it from one goroutine.
type Accumulator struct {
	mu        sync.Mutex
	extractor Extractor
	current   SignalSet
}

// NewAccumulator creates an Accumulator backed by the given extractor.
// A nil extractor falls back to the keyword extractor.
func NewAccumulator(e Extractor) *Accumulator {
	if e == nil {
		e = NewKeywordExtractor()
	}
	return &Accumulator{extractor: e}
}

// AddText scans one more free-text answer and returns the updated set.
func (a *Accumulator) AddText(field string) SignalSet {
	found := a.extractor.Extract(Text{BusinessDescription: field}, Metrics{})
	return a.add(found)
}

// AddMetrics records numeric answers and returns the updated set.
func (a *Accumulator) AddMetrics(m Metrics) SignalSet {
	return a.add(FromMetrics(m))
}

func (a *Accumulator) add(s SignalSet) SignalSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = a.current.Merge(s)
	return a.current
}
