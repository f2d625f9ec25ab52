package dashboard

import (
	"context"
	"time"
)

// InputKind names a user action delivered to Run.
type InputKind int

const (
	InputRefresh InputKind = iota
	InputActivate
	InputDismiss
	InputSearch
	InputUp
	InputDown
	InputPageUp
	InputPageDown
	InputSort
	InputWatch
	InputRaw
	InputQuit
)

// Input is one user action. Index is used by InputActivate (-1 means the
// selected row); Query by InputSearch.
type Input struct {
	Kind  InputKind
	Index int
	Query string
}

// Run drives c from a select loop until ctx is done, InputQuit arrives, or
// (when the scheduler has no recurring interval) the first result has been
// applied. Inputs, push triggers, timer ticks and fetch results are handled
// one at a time in arrival order; only provider calls run on other
// goroutines. Either channel may be nil.
func Run(ctx context.Context, c *Controller, inputs <-chan Input, triggers <-chan string) error {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// At most one fetch is outstanding, so one slot never blocks the sender.
	results := make(chan Result, 1)
	run := func(f *Fetch) {
		if f == nil {
			return
		}
		go func() { results <- f.Run(fetchCtx) }()
	}

	first, err := c.Start(ctx)
	if err != nil {
		return err
	}
	run(first)

	sched := c.Scheduler()
	var tickC <-chan time.Time
	epoch := sched.Epoch()
	if sched.Recurring() {
		ticker := time.NewTicker(sched.Interval())
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-tickC:
			run(c.Tick(epoch))
		case sym := <-triggers:
			run(c.Trigger(sym))
		case r := <-results:
			run(c.Apply(r))
			if !sched.Recurring() && !sched.InFlight() {
				c.Quit()
				return nil
			}
		case in := <-inputs:
			if in.Kind == InputQuit {
				c.Quit()
				return nil
			}
			run(handleInput(ctx, c, in))
		case <-ctx.Done():
			c.Quit()
			return nil
		}
	}
}

// handleInput applies in to c and returns a fetch to run, if any.
func handleInput(ctx context.Context, c *Controller, in Input) *Fetch {
	switch in.Kind {
	case InputRefresh:
		return c.ManualRefresh()
	case InputActivate:
		if in.Index < 0 {
			c.ActivateSelected()
		} else {
			c.ActivateRow(in.Index)
		}
	case InputDismiss:
		c.DismissDetail()
	case InputSearch:
		_ = c.Search(in.Query) // reported through Notify
	case InputUp:
		c.MoveUp()
	case InputDown:
		c.MoveDown()
	case InputPageUp:
		c.PageUp()
	case InputPageDown:
		c.PageDown()
	case InputSort:
		c.CycleSort()
	case InputWatch:
		c.ToggleWatch(ctx)
	case InputRaw:
		c.ToggleRaw()
	}
	return nil
}
