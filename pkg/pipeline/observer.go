package pipeline

import (
	"wallgrab/pkg/logger"
	"wallgrab/pkg/models"
)

// Observer receives every outcome as the run proceeds
type Observer interface {
	Observe(o models.Outcome)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(o models.Outcome)

// Observe implements Observer
func (f ObserverFunc) Observe(o models.Outcome) { f(o) }

// Observers fans one outcome out to several observers
type Observers []Observer

// Observe implements Observer
func (os Observers) Observe(o models.Outcome) {
	for _, obs := range os {
		if obs != nil {
			obs.Observe(o)
		}
	}
}

// LogObserver writes each outcome to a structured logger
type LogObserver struct {
	Logger logger.Logger
}

// Observe implements Observer
func (l LogObserver) Observe(o models.Outcome) {
	logger.LogOutcome(l.Logger, o)
}

type nopObserver struct{}

func (nopObserver) Observe(models.Outcome) {}
