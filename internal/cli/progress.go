package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/law-makers/jobcrawl/internal/engine/pagination"
	"github.com/law-makers/jobcrawl/pkg/models"
)

// progressObserver drives a terminal progress bar from pipeline events.
type progressObserver struct {
	pagination.NopObserver
	bar *progressbar.ProgressBar
}

// newProgress returns a bar counting saved records. max <= 0 gives a spinner.
func newProgress(w io.Writer, max int) *progressObserver {
	if max <= 0 {
		max = -1
	}
	bar := progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Searching"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("jobs"),
		progressbar.OptionShowIts(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &progressObserver{bar: bar}
}

func (p *progressObserver) PageDone(page int, outcome string, listings int) {
	p.bar.Describe(fmt.Sprintf("Page %d (%s, %d listings)", page+1, outcome, listings))
}

func (p *progressObserver) RecordSaved(*models.JobRecord, bool) {
	_ = p.bar.Add(1)
}

func (p *progressObserver) Finish() {
	_ = p.bar.Finish()
}
