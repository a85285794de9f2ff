package metrics

import "github.com/law-makers/jobcrawl/pkg/models"

// The methods below let a Metrics observe a pagination run directly.

func (m *Metrics) PageDone(_ int, outcome string, _ int) { m.IncPages(outcome) }

func (m *Metrics) RecordSaved(_ *models.JobRecord, enriched bool) { m.IncRecords(enriched) }

func (m *Metrics) Duplicate(scope string) { m.IncDuplicates(scope) }

func (m *Metrics) EnrichFailed(*models.JobRecord, error) { m.IncEnrichFailures() }

func (m *Metrics) Error(kind string, _ error) { m.IncErrors(kind) }
