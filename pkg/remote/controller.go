// Package remote runs the quadruped from a stream of user commands.
package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gwillem/meped/pkg/quad"
)

// Speed limits in deg/s for CmdFaster and CmdSlower.
const (
	MinSpeed  = 20.0
	MaxSpeed  = 400.0
	speedStep = 1.25

	tallPercent = 80
	lowPercent  = 20
)

// State represents the servo angles after a bus write.
type State struct {
	Positions quad.Pose
	Command   Command
	Timestamp time.Time
	Error     error
}

// Controller executes commands one at a time. A command arriving while a
// move is in progress stops that move at the next tick.
type Controller struct {
	body  *quad.Body
	store quad.TrimStore
	gait  quad.Gait
	log   zerolog.Logger

	mu      sync.RWMutex
	running bool
	current Command

	cmdCh    chan Command
	pending  *Command
	draining bool
	stateCh  chan State
	logCh    chan string
}

// Config holds configuration for the controller.
type Config struct {
	Bus    quad.Bus
	Body   quad.BodyConfig
	Store  quad.TrimStore // optional
	Logger zerolog.Logger

	// Sleep overrides the wait between ticks.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates a controller and loads the trim table.
func NewController(cfg Config) (*Controller, error) {
	c := &Controller{
		store:   cfg.Store,
		gait:    quad.Creep,
		log:     cfg.Logger,
		cmdCh:   make(chan Command, 8),
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}

	model := quad.NewModel(&observedBus{bus: cfg.Bus, c: c}, cfg.Logger)
	syncer := quad.NewSynchronizer(model, quad.SyncConfig{
		Poll:   quad.PollFunc(c.poll),
		Logger: cfg.Logger,
		Sleep:  cfg.Sleep,
	})
	body := cfg.Body
	body.Logger = cfg.Logger
	c.body = quad.NewBody(model, syncer, body)

	if c.store != nil {
		if err := c.body.LoadTrim(c.store); err != nil {
			return nil, fmt.Errorf("create controller: %w", err)
		}
	}
	return c, nil
}

// Body returns the body driven by the controller. It must not be used while
// Start is running.
func (c *Controller) Body() *quad.Body {
	return c.body
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Gait returns the gait used for walking.
func (c *Controller) Gait() quad.Gait {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gait
}

// Current returns the command being executed.
func (c *Controller) Current() Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Send queues a command. It never blocks; when the queue is full the command
// is dropped.
func (c *Controller) Send(cmd Command) {
	select {
	case c.cmdCh <- cmd:
	default:
		c.logf("Dropped command %s: queue full", cmd)
	}
}

func (c *Controller) logf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.log.Debug().Msg(text)

	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// poll is checked by the synchronizer once per tick. Any new command stops
// the running move and is kept for the main loop.
func (c *Controller) poll() bool {
	if c.draining {
		return false
	}
	if c.pending != nil {
		return true
	}
	select {
	case cmd := <-c.cmdCh:
		c.pending = &cmd
		return true
	default:
		return false
	}
}

func (c *Controller) next(ctx context.Context) (Command, error) {
	if c.pending != nil {
		cmd := *c.pending
		c.pending = nil
		return cmd, nil
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case cmd := <-c.cmdCh:
		return cmd, nil
	}
}

// Start centers the legs and executes commands until ctx is cancelled. The
// body is shut down before Start returns.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	if _, err := c.body.Center(ctx); err != nil {
		c.logf("Warning: failed to center legs: %v", err)
	}
	c.logf("Ready, speed %.0f deg/s", c.body.Speed())

	for {
		cmd, err := c.next(ctx)
		if err != nil {
			c.shutdown()
			return err
		}
		if _, err := c.Execute(ctx, cmd); err != nil {
			c.logf("Command %s failed: %v", cmd, err)
		}
		if cmd == CmdShutdown {
			c.setRunning(false)
			return nil
		}
	}
}

func (c *Controller) setRunning(v bool) {
	c.mu.Lock()
	c.running = v
	c.mu.Unlock()
}

func (c *Controller) setCurrent(cmd Command) {
	c.mu.Lock()
	c.current = cmd
	c.mu.Unlock()
}

// Execute runs a single command. Continuous commands repeat until a new
// command arrives or ctx is cancelled.
func (c *Controller) Execute(ctx context.Context, cmd Command) (quad.Result, error) {
	c.setCurrent(cmd)
	defer c.setCurrent(CmdStop)
	c.logf("Command: %s", cmd)

	if cmd.Continuous() {
		return c.repeat(ctx, cmd)
	}

	b := c.body
	switch cmd {
	case CmdStop:
		return quad.Result{Status: quad.StatusDone}, nil
	case CmdCenter:
		return b.Center(ctx)
	case CmdBodyUp:
		return quad.Result{Status: quad.StatusDone}, b.RaiseBody(ctx)
	case CmdBodyDown:
		return quad.Result{Status: quad.StatusDone}, b.LowerBody(ctx)
	case CmdTall:
		return b.SetBodyHeight(ctx, tallPercent)
	case CmdLow:
		return b.SetBodyHeight(ctx, lowPercent)
	case CmdFaster:
		b.SetSpeed(min(b.Speed()*speedStep, MaxSpeed))
		c.logf("Speed %.0f deg/s", b.Speed())
	case CmdSlower:
		b.SetSpeed(max(b.Speed()/speedStep, MinSpeed))
		c.logf("Speed %.0f deg/s", b.Speed())
	case CmdToggleGait:
		c.mu.Lock()
		if c.gait.Name == quad.Creep.Name {
			c.gait = quad.Trot
		} else {
			c.gait = quad.Creep
		}
		c.mu.Unlock()
		c.logf("Gait %s", c.Gait().Name)
	case CmdShutdown:
		return b.Shutdown(ctx)
	default:
		return quad.Result{}, fmt.Errorf("unknown command %d", cmd)
	}
	return quad.Result{Status: quad.StatusDone}, nil
}

var walkDirections = map[Command]quad.Direction{
	CmdForward:  quad.Forward,
	CmdBackward: quad.Backward,
	CmdLeft:     quad.Left,
	CmdRight:    quad.Right,
}

// repeat plays gait cycles, alternating the mirror flag so the leading leg
// changes sides, or twists until interrupted.
func (c *Controller) repeat(ctx context.Context, cmd Command) (quad.Result, error) {
	var (
		total  quad.Result
		mirror bool
	)
	for {
		var (
			res quad.Result
			err error
		)
		switch cmd {
		case CmdTwistLeft:
			res, err = c.body.Twist(ctx, false)
		case CmdTwistRight:
			res, err = c.body.Twist(ctx, true)
		default:
			res, err = c.body.Walk(ctx, c.Gait(), walkDirections[cmd], mirror)
			mirror = !mirror
		}
		total.Ticks += res.Ticks
		total.Status = res.Status
		if err != nil || res.Aborted() {
			return total, err
		}
	}
}

// SaveTrim writes the current trim table to the store.
func (c *Controller) SaveTrim() error {
	if c.store == nil {
		return fmt.Errorf("no trim store configured")
	}
	if err := c.body.SaveTrim(c.store); err != nil {
		return err
	}
	c.logf("Trim saved")
	return nil
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

func (c *Controller) shutdown() {
	defer c.setRunning(false)

	// Queued commands must not interrupt the shutdown move.
	c.draining = true
	ctx := context.Background()
	if _, err := c.body.Shutdown(ctx); err != nil {
		c.logf("Warning: failed to shut down servos: %v", err)
	}
	c.logf("Stopped")
}

// observedBus reports every write as a State.
type observedBus struct {
	bus quad.Bus
	c   *Controller
}

func (o *observedBus) Write(ctx context.Context, angles quad.Pose, trim quad.TrimTable) error {
	err := o.bus.Write(ctx, angles, trim)
	o.c.sendState(State{
		Positions: angles,
		Command:   o.c.Current(),
		Timestamp: time.Now(),
		Error:     err,
	})
	return err
}
