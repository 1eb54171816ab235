package runctl

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"exohunt/internal/config"
	"exohunt/internal/logging"
	"exohunt/internal/services"
)

// Interrupt policies.
const (
	PolicySkipItem = "skip_item"
	PolicyStop     = "stop"
)

// Options configures a Controller.
type Options struct {
	Policy         string
	HardStopWindow time.Duration
}

// OptionsFromConfig reads the run section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Policy:         cfg.Run.InterruptPolicy,
		HardStopWindow: time.Duration(cfg.Run.HardStopWindow) * time.Second,
	}
}

// Controller owns the root context of a run and the context of the item
// currently being processed.
type Controller struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	root   context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	itemCancel    context.CancelFunc
	lastInterrupt time.Time

	signals  chan os.Signal
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a controller whose root context derives from parent. Call
// Start to attach OS signals.
func New(parent context.Context, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts.Policy = strings.ToLower(strings.TrimSpace(opts.Policy))
	if opts.Policy == "" {
		opts.Policy = PolicySkipItem
	}
	if opts.HardStopWindow <= 0 {
		opts.HardStopWindow = 3 * time.Second
	}
	root, cancel := context.WithCancel(parent)
	return &Controller{
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "runctl"),
		now:     time.Now,
		root:    root,
		cancel:  cancel,
		signals: make(chan os.Signal, 2),
		done:    make(chan struct{}),
	}
}

// Start routes SIGINT to Interrupt and SIGTERM to Terminate until Stop.
func (c *Controller) Start() {
	signal.Notify(c.signals, unix.SIGINT, unix.SIGTERM)
	go func() {
		for {
			select {
			case <-c.done:
				return
			case sig := <-c.signals:
				if sig == unix.SIGTERM {
					c.Terminate()
					continue
				}
				c.Interrupt()
			}
		}
	}()
}

// Stop detaches signals and cancels the root context.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		signal.Stop(c.signals)
		close(c.done)
		c.cancel()
	})
}

// Context returns the root context.
func (c *Controller) Context() context.Context {
	return c.root
}

// Item starts a new loop item. The returned function must be called when the
// item finishes.
func (c *Controller) Item() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.root)
	c.mu.Lock()
	c.itemCancel = cancel
	c.mu.Unlock()
	return ctx, func() {
		c.mu.Lock()
		c.itemCancel = nil
		c.mu.Unlock()
		cancel()
	}
}

// Interrupt handles one SIGINT.
func (c *Controller) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	repeated := !c.lastInterrupt.IsZero() && now.Sub(c.lastInterrupt) <= c.opts.HardStopWindow
	c.lastInterrupt = now

	if c.opts.Policy == PolicyStop || repeated {
		logging.WarnWithContext(c.logger, "interrupt received; stopping run", "run_interrupted",
			logging.String("policy", c.opts.Policy),
			logging.String(logging.FieldImpact, "remaining items are not processed"),
		)
		c.cancel()
		return
	}
	if c.itemCancel == nil {
		c.logger.Info("interrupt received between items; interrupt again to stop",
			logging.Duration("window", c.opts.HardStopWindow))
		return
	}
	logging.WarnWithContext(c.logger, "interrupt received; abandoning current item", "item_interrupted",
		logging.Duration("window", c.opts.HardStopWindow),
		logging.String(logging.FieldImpact, "interrupt again within the window to stop the run"),
	)
	c.itemCancel()
}

// Terminate cancels the root context.
func (c *Controller) Terminate() {
	c.logger.Warn("termination requested; stopping run")
	c.cancel()
}

// Stopped reports whether the run has been cancelled.
func (c *Controller) Stopped() bool {
	return c.root.Err() != nil
}

// ForEach runs fn for items 0..n-1, each in its own item context. An item
// abandoned by an interrupt is logged and the loop continues; the loop ends
// early when the run is stopped or fn returns a fatal error. Other errors are
// the callback's to log.
func (c *Controller) ForEach(n int, fn func(ctx context.Context, index int) error) error {
	for i := 0; i < n; i++ {
		if c.Stopped() {
			return services.Wrap(services.ErrInterrupted, "", "batch", "run stopped", c.root.Err())
		}
		ctx, done := c.Item()
		err := fn(services.WithIndex(ctx, i+1), i)
		skipped := ctx.Err() != nil && !c.Stopped()
		done()
		switch {
		case skipped:
			c.logger.Info("item abandoned", logging.Int(logging.FieldIndex, i+1))
		case err != nil && services.Fatal(err):
			return err
		}
	}
	if c.Stopped() {
		return services.Wrap(services.ErrInterrupted, "", "batch", "run stopped", c.root.Err())
	}
	return nil
}

// Check returns an ErrInterrupted error when ctx is done.
func Check(ctx context.Context, stage, operation string) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrInterrupted, stage, operation, "cancelled", err)
	}
	return nil
}

// IsInterrupt reports whether err stems from cancellation.
func IsInterrupt(err error) bool {
	return errors.Is(err, services.ErrInterrupted) || errors.Is(err, context.Canceled)
}
