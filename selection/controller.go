// Package selection drives candidate fetching, filtering, dedup and
// segmentation across the iterations of a run.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"storybot/common"
	"storybot/config"
	"storybot/feed"
	"storybot/filter"
	"storybot/handoff"
	"storybot/ledger"
	"storybot/segment"
	"storybot/traversal"
	"storybot/types"

	"github.com/google/uuid"
)

var (
	// ErrBusy is returned by Run while another run is in progress
	ErrBusy = errors.New("a run is already in progress")
	// ErrExhausted means the candidate source has nothing left for this iteration
	ErrExhausted = errors.New("candidate pool exhausted")
	// ErrDuplicate means the candidate was already used
	ErrDuplicate = errors.New("duplicate content")
)

// RejectedError reports a candidate turned down by a filter stage
type RejectedError struct {
	ID        string
	Stage     string
	Reason    string
	Permanent bool
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected by %s: %s", e.ID, e.Stage, e.Reason)
}

// IterationFailure describes an iteration that ended without a selection
type IterationFailure struct {
	Iteration int      `json:"iteration"`
	Attempts  int      `json:"attempts"`
	Reasons   []string `json:"reasons"`
}

// RunResult is everything one run produced
type RunResult struct {
	RunID           string             `json:"run_id"`
	Selections      []*types.Selection `json:"selections"`
	Failures        []IterationFailure `json:"failures"`
	Attempts        int                `json:"attempts"`
	PublishFailures int                `json:"publish_failures"`
}

// LedgerOpener acquires the ledger for one run. The controller closes it when
// the run ends.
type LedgerOpener func(ctx context.Context) (*ledger.Ledger, error)

// Config wires a Controller
type Config struct {
	Source     *feed.Source
	OpenLedger LedgerOpener
	// Publisher receives every selection; nil only logs them
	Publisher handoff.Publisher
	// Redactor masks swear words; nil disables redaction
	Redactor *filter.Redactor
}

// Controller runs selection passes. One run at a time.
type Controller struct {
	source     *feed.Source
	openLedger LedgerOpener
	publisher  handoff.Publisher
	redactor   *filter.Redactor
	status     *Status

	sleep func(ctx context.Context, d time.Duration) error
	newID func() string

	mu     sync.Mutex
	active *ledger.Ledger
}

// NewController creates a Controller
func NewController(cfg Config) *Controller {
	pub := cfg.Publisher
	if pub == nil {
		pub = handoff.Log{}
	}
	return &Controller{
		source:     cfg.Source,
		openLedger: cfg.OpenLedger,
		publisher:  pub,
		redactor:   cfg.Redactor,
		status:     NewStatus(),
		sleep:      common.Sleep,
		newID:      uuid.NewString,
	}
}

// Status returns the live status of the controller
func (c *Controller) Status() *Status {
	return c.status
}

// Inspect calls fn with the ledger of the run in progress, or with a freshly
// opened ledger when idle.
func (c *Controller) Inspect(ctx context.Context, fn func(*ledger.Ledger) error) error {
	c.mu.Lock()
	active := c.active
	if active != nil {
		defer c.mu.Unlock()
		return fn(active)
	}
	c.mu.Unlock()

	l, err := c.openLedger(ctx)
	if err != nil {
		return err
	}
	return errors.Join(fn(l), l.Close(ctx))
}

func (c *Controller) setActive(l *ledger.Ledger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = l
}

// Run performs cs.TimesToRun iterations. A failed iteration is reported in
// the result and does not stop the run; a ledger failure does, returning the
// partial result alongside the error. Cancellation is honoured between
// iterations.
func (c *Controller) Run(ctx context.Context, cs config.ConstraintSet) (result *RunResult, err error) {
	if err := cs.Validate(); err != nil {
		return nil, err
	}

	runID := c.newID()
	if !c.status.begin(runID) {
		return nil, ErrBusy
	}

	l, err := c.openLedger(ctx)
	if err != nil {
		c.status.SetError(err)
		return nil, err
	}
	c.setActive(l)

	defer func() {
		c.setActive(nil)
		if cerr := l.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, cerr)
		}
		if err != nil {
			c.status.SetError(err)
			return
		}
		c.status.SetState(types.StateComplete)
		c.status.AddLog(fmt.Sprintf("Run %s complete: %d selected, %d failed",
			runID, len(result.Selections), len(result.Failures)))
	}()

	r := &run{
		c:      c,
		id:     runID,
		cs:     cs,
		mode:   feed.ModeFor(cs),
		filter: filter.New(cs, c.redactor),
		ledger: l,
		walker: traversal.NewWalker(c.source.Feed(), cs.FetchTimeout),
		segmenter: segment.Segmenter{
			MaxWords: cs.MaxWordsPerSegment,
			MaxChars: cs.MaxCharsPerSegment,
		},
		picked: make(map[string]bool),
		seen:   make(map[string]bool),
	}
	defer r.close()
	result = &RunResult{RunID: runID}

	log.Printf("🚀 Run %s started: mode=%s story=%v iterations=%d attempts=%d",
		runID, r.mode, cs.StoryMode, cs.TimesToRun, cs.Attempts())

	for i := 1; i <= cs.TimesToRun; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		sel, failure, err := r.iterate(ctx, i, result)
		if err != nil {
			return result, err
		}
		if failure != nil {
			result.Failures = append(result.Failures, *failure)
			c.status.addFailure()
			c.status.AddLog(fmt.Sprintf("Iteration %d failed after %d attempts", i, failure.Attempts))
			log.Printf("⚠️ Iteration %d failed after %d attempts", i, failure.Attempts)
			continue
		}

		result.Selections = append(result.Selections, sel)
		c.status.addSelection(sel)
		c.status.AddLog(fmt.Sprintf("Iteration %d selected %s", i, sel.ItemID()))
	}
	return result, nil
}
