// Package scheduler drives periodic evaluation passes in-process. It
// is the default way passes run; the HTTP trigger endpoints exist for
// external schedulers and manual runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/good-yellow-bee/sentinela/internal/engine"
)

// Runner is the subset of the engine the scheduler drives.
type Runner interface {
	RunBusiness(ctx context.Context) (*engine.Summary, error)
	RunSecurity(ctx context.Context) (*engine.Summary, error)
}

// Config contains scheduler configuration.
type Config struct {
	IntervalBusiness time.Duration
	IntervalSecurity time.Duration
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.IntervalBusiness == 0 {
		c.IntervalBusiness = 30 * time.Minute
	}
	if c.IntervalSecurity == 0 {
		c.IntervalSecurity = 10 * time.Minute
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.IntervalBusiness < 0 {
		return fmt.Errorf("interval_business must be positive")
	}
	if c.IntervalSecurity < 0 {
		return fmt.Errorf("interval_security must be positive")
	}
	return nil
}

// Scheduler runs evaluation passes on fixed intervals. Intervals can
// change at runtime via SetIntervals; Run picks changes up without a
// restart.
type Scheduler struct {
	runner Runner

	mu     sync.Mutex
	cfg    Config
	reload chan struct{}
}

// New creates a new Scheduler.
func New(runner Runner, cfg Config) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	cfg.SetDefaults()

	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		reload: make(chan struct{}, 1),
	}, nil
}

// Intervals returns the current business and security intervals.
func (s *Scheduler) Intervals() (business, security time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.IntervalBusiness, s.cfg.IntervalSecurity
}

// SetIntervals updates the pass intervals. A zero value keeps the
// current interval. Run resets its tickers on the next iteration.
func (s *Scheduler) SetIntervals(business, security time.Duration) {
	s.mu.Lock()
	changed := false
	if business > 0 && business != s.cfg.IntervalBusiness {
		s.cfg.IntervalBusiness = business
		changed = true
	}
	if security > 0 && security != s.cfg.IntervalSecurity {
		s.cfg.IntervalSecurity = security
		changed = true
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// Run drives the tickers until the context is canceled. Passes that
// would overlap an in-flight run are skipped, not queued.
func (s *Scheduler) Run(ctx context.Context) error {
	business, security := s.Intervals()
	log.Printf("scheduler started: business every %s, security every %s", business, security)

	businessTicker := time.NewTicker(business)
	defer businessTicker.Stop()
	securityTicker := time.NewTicker(security)
	defer securityTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler stopped")
			return nil
		case <-s.reload:
			business, security = s.Intervals()
			businessTicker.Reset(business)
			securityTicker.Reset(security)
			log.Printf("scheduler intervals updated: business every %s, security every %s", business, security)
		case <-businessTicker.C:
			s.runPass(ctx, "business", s.runner.RunBusiness)
		case <-securityTicker.C:
			s.runPass(ctx, "security", s.runner.RunSecurity)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context, job string, run func(context.Context) (*engine.Summary, error)) {
	summary, err := run(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrRunInProgress) {
			log.Printf("%s tick skipped: previous pass still running", job)
			return
		}
		log.Printf("%s pass failed: %v", job, err)
		return
	}
	log.Printf("%s", summary)
}

// Watch watches the config file at path and applies interval changes
// via load until the context is canceled. The parent directory is
// watched because editors and config tooling replace the file rather
// than write it in place.
func (s *Scheduler) Watch(ctx context.Context, path string, load func(string) (Config, error)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := load(absPath)
			if err != nil {
				log.Printf("config reload failed, keeping current intervals: %v", err)
				continue
			}
			s.SetIntervals(cfg.IntervalBusiness, cfg.IntervalSecurity)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("config watcher error: %v", err)
		}
	}
}
