package pagination

import "github.com/law-makers/jobcrawl/pkg/models"

// Page outcomes reported to observers.
const (
	OutcomeOK         = "ok"
	OutcomeNoListings = "no_listings"
	OutcomeBlocked    = "blocked"
	OutcomeError      = "error"
)

// Observer is told about run progress. Calls happen on the driver goroutine,
// in order.
type Observer interface {
	PageDone(page int, outcome string, listings int)
	RecordSaved(rec *models.JobRecord, enriched bool)
	Duplicate(scope string)
	EnrichFailed(rec *models.JobRecord, err error)
	Error(kind string, err error)
}

// NopObserver ignores everything. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) PageDone(int, string, int)             {}
func (NopObserver) RecordSaved(*models.JobRecord, bool)   {}
func (NopObserver) Duplicate(string)                      {}
func (NopObserver) EnrichFailed(*models.JobRecord, error) {}
func (NopObserver) Error(string, error)                   {}

// Observers fans out to several observers.
type Observers []Observer

func (o Observers) PageDone(page int, outcome string, listings int) {
	for _, ob := range o {
		ob.PageDone(page, outcome, listings)
	}
}

func (o Observers) RecordSaved(rec *models.JobRecord, enriched bool) {
	for _, ob := range o {
		ob.RecordSaved(rec, enriched)
	}
}

func (o Observers) Duplicate(scope string) {
	for _, ob := range o {
		ob.Duplicate(scope)
	}
}

func (o Observers) EnrichFailed(rec *models.JobRecord, err error) {
	for _, ob := range o {
		ob.EnrichFailed(rec, err)
	}
}

func (o Observers) Error(kind string, err error) {
	for _, ob := range o {
		ob.Error(kind, err)
	}
}
