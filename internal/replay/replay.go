package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/vstore"
	"github.com/vango-dev/vstore/internal/config"
	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/binding"
	"github.com/vango-dev/vstore/pkg/scope"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/track"
	"github.com/vango-dev/vstore/pkg/tree"
)

// EventKind classifies a render.
type EventKind string

const (
	// EventMount is the first render of a binding.
	EventMount EventKind = "mount"
	// EventRender is a re-render with the current value.
	EventRender EventKind = "render"
	// EventPending is a deferred re-render still showing the old value.
	EventPending EventKind = "pending"
	// EventReady is a deferred re-render after the change was adopted.
	EventReady EventKind = "ready"
)

// Value is one path a binding read.
type Value struct {
	Path string
	Node *tree.Node
}

// Event is one render of one binding.
type Event struct {
	Binding  string
	Protocol string
	Kind     EventKind
	Version  uint64
	Values   []Value
}

// StepResult is what one step did.
type StepResult struct {
	Index   int
	Step    config.Step
	Version uint64
	Err     error
	Events  []Event
}

// Report is the outcome of a run.
type Report struct {
	Name     string
	Mount    []Event
	Steps    []StepResult
	Renders  map[string]int
	Pending  []string
	Bindings []config.Binding
}

// Err returns the first failed step as a coded error, or nil.
func (r *Report) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return errors.New("E140").
				Wrap(s.Err).
				WithDetailf("step %d (%s): %s", s.Index+1, s.Step, s.Err)
		}
	}
	return nil
}

// Options configures a run.
type Options struct {
	// Realtime makes wait steps sleep and deferred bindings use real
	// timers.
	Realtime bool

	// Logger is the store logger. Default: slog.Default().
	Logger *slog.Logger

	// Middleware is installed on the store.
	Middleware []store.Middleware

	// OnEvent is called for every render as it happens.
	OnEvent func(Event)
}

type runner struct {
	opts  Options
	kit   *vstore.Kit
	root  *scope.Owner
	clock *binding.ManualClock

	components []*component
	mu         sync.Mutex
	dirty      []*component

	renders map[string]int
	events  []Event
}

type component struct {
	r       *runner
	decl    config.Binding
	owner   *scope.Owner
	queued  bool
	pending bool
	mounted bool
}

// Run executes cfg. The returned error is set only when the run could not
// start; step failures are recorded in the report.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Report, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	kit, err := vstore.Create(cfg.InitialState(),
		store.WithName(cfg.Name),
		store.WithLogger(opts.Logger),
		store.WithMiddleware(opts.Middleware...),
	)
	if err != nil {
		return nil, errors.New("E102").Wrap(err).WithDetail(err.Error())
	}

	r := &runner{
		opts:    opts,
		kit:     kit,
		root:    scope.NewOwner(nil),
		renders: make(map[string]int),
	}
	if !opts.Realtime {
		r.clock = binding.NewManualClock()
	}
	defer r.root.Dispose()

	r.root.StartRender()
	kit.Provider(r.root)
	r.root.EndRender()

	report := &Report{Name: cfg.Name, Renders: r.renders, Bindings: cfg.Bindings}
	for _, decl := range cfg.Bindings {
		c := &component{r: r, decl: decl}
		c.owner = scope.NewOwner(r.root, scope.WithInvalidate(c.invalidate))
		r.components = append(r.components, c)
		if err := c.render(); err != nil {
			return nil, err
		}
	}
	report.Mount = r.take()

	for i, step := range cfg.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := StepResult{Index: i, Step: step}
		if err := r.step(ctx, step); err != nil {
			res.Err = err
		}
		if err := r.flush(); err != nil {
			return report, err
		}
		res.Version = kit.Store().Current().Version
		res.Events = r.take()
		report.Steps = append(report.Steps, res)
	}

	for _, c := range r.components {
		if c.pending {
			report.Pending = append(report.Pending, c.decl.Name)
		}
	}
	return report, nil
}

func (r *runner) step(ctx context.Context, step config.Step) error {
	if step.Kind() != config.StepWait {
		return r.kit.Store().UpdateContext(ctx, step.Mutation())
	}
	d := step.WaitDuration()
	if r.clock != nil {
		r.clock.Advance(d)
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// flush re-renders queued components until none is left.
func (r *runner) flush() error {
	for {
		r.mu.Lock()
		if len(r.dirty) == 0 {
			r.mu.Unlock()
			return nil
		}
		c := r.dirty[0]
		r.dirty = r.dirty[1:]
		c.queued = false
		r.mu.Unlock()

		if err := c.render(); err != nil {
			return err
		}
	}
}

func (r *runner) take() []Event {
	ev := r.events
	r.events = nil
	return ev
}

func (r *runner) record(e Event) {
	r.renders[e.Binding]++
	r.events = append(r.events, e)
	if r.opts.OnEvent != nil {
		r.opts.OnEvent(e)
	}
}

// invalidate may run on a timer goroutine in realtime mode.
func (c *component) invalidate() {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	if c.queued {
		return
	}
	c.queued = true
	c.r.dirty = append(c.r.dirty, c)
}

func (c *component) render() (err error) {
	o := c.owner
	o.StartRender()
	defer o.EndRender()

	ev := Event{Binding: c.decl.Name, Protocol: c.decl.Protocol, Kind: EventRender}
	if !c.mounted {
		ev.Kind = EventMount
		c.mounted = true
	}

	var v *track.View
	switch c.decl.Protocol {
	case config.ProtocolImmediate:
		v, _, err = c.r.kit.UseImmediate(o)
	case config.ProtocolSynchronized:
		v, _, err = c.r.kit.UseSynchronized(o)
	case config.ProtocolDeferred:
		var opts []binding.DeferredOption
		if c.r.clock != nil {
			opts = append(opts, binding.WithClock(c.r.clock))
		}
		var res binding.Result
		res, _, err = c.r.kit.UseDeferred(o, c.decl.DelayDuration(), opts...)
		if err == nil {
			v = res.View
			switch {
			case res.Pending:
				ev.Kind = EventPending
			case c.pending:
				ev.Kind = EventReady
			}
			c.pending = res.Pending
		}
	default:
		err = fmt.Errorf("unknown protocol %q", c.decl.Protocol)
	}
	if err != nil {
		return err
	}

	ev.Version = c.version()
	for _, p := range c.decl.Paths() {
		n := v.At(p).Node()
		if n == nil {
			n = tree.Null()
		}
		ev.Values = append(ev.Values, Value{Path: p.String(), Node: n})
	}
	c.r.record(ev)
	return nil
}

// version returns the store version whose value the component rendered.
func (c *component) version() uint64 {
	_, slot := c.owner.HookSlot(0)
	if b, ok := slot.(interface{ Seen() store.Snapshot }); ok {
		return b.Seen().Version
	}
	return c.r.kit.Store().Current().Version
}
