package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/muurk/vtdash/internal/config"
	"github.com/muurk/vtdash/internal/dashboard"
	"github.com/muurk/vtdash/internal/entity"
	"github.com/muurk/vtdash/internal/homeassistant"
	"github.com/muurk/vtdash/internal/logging"
	"github.com/muurk/vtdash/internal/vt100"
	"go.uber.org/zap"
)

// DefaultReconnectDelay is the pause between attempts to reopen a lost terminal
const DefaultReconnectDelay = time.Second

// Terminal is the transport a session drives. *vt100.Terminal satisfies it.
type Terminal interface {
	dashboard.Terminal
	RecvInput(timeout time.Duration) (vt100.Event, error)
	PeekInput() (vt100.Event, bool)
	Set80Columns()
	Set132Columns()
	Reset() error
	Close() error
}

// Opener connects to the terminal
type Opener func(cfg config.Terminal) (Terminal, error)

// ProviderFactory builds the state provider for a configuration
type ProviderFactory func(cfg *config.Config) (entity.Provider, error)

// Options holds the session collaborators. Zero fields get the production
// implementations.
type Options struct {
	// ConfigPath is reloaded on change when Watch is set
	ConfigPath string
	Watch      bool

	Open           Opener
	NewProvider    ProviderFactory
	ReconnectDelay time.Duration
	StoreTimeout   time.Duration
}

// OpenTerminal opens the configured serial port, or the local TTY
func OpenTerminal(cfg config.Terminal) (Terminal, error) {
	var (
		term *vt100.Terminal
		err  error
	)
	if cfg.Port == vt100.LocalPort {
		term, err = vt100.OpenLocal()
	} else {
		term, err = vt100.Open(cfg.Port, cfg.Baud, cfg.Flow)
	}
	if err != nil {
		return nil, err
	}
	return term, nil
}

// NewProvider builds the Home Assistant provider for cfg
func NewProvider(cfg *config.Config) (entity.Provider, error) {
	return homeassistant.NewProvider(cfg.HomeAssistant.Transport, cfg.HomeAssistant.URL, cfg.HomeAssistant.Token)
}

// Session runs the dashboard on one terminal until exit, rebuilding
// everything when the terminal goes away
type Session struct {
	cfg  *config.Config
	opts Options

	reload atomic.Bool
}

// New creates a session for cfg
func New(cfg *config.Config, opts Options) *Session {
	if opts.Open == nil {
		opts.Open = OpenTerminal
	}
	if opts.NewProvider == nil {
		opts.NewProvider = NewProvider
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	return &Session{cfg: cfg, opts: opts}
}

// RequestReload rebuilds the dashboard from ConfigPath at the top of the
// next loop iteration
func (s *Session) RequestReload() {
	s.reload.Store(true)
}

// Run drives the dashboard until the user exits or ctx is cancelled.
// Losing the terminal is not an error: it is reopened every ReconnectDelay.
func (s *Session) Run(ctx context.Context) error {
	if s.opts.Watch && s.opts.ConfigPath != "" {
		go func() {
			if err := config.Watch(ctx, s.opts.ConfigPath, s.RequestReload); err != nil {
				logging.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	for {
		term, err := s.connect(ctx)
		if err != nil {
			return nil
		}

		err = s.serve(ctx, term)
		if errors.Is(err, vt100.ErrTransportLost) {
			logging.Warn("Lost terminal, will attempt a reconnect", zap.Error(err))
			_ = term.Close()
			continue
		}

		if rerr := term.Reset(); rerr != nil {
			logging.Debug("Failed to reset terminal", zap.Error(rerr))
		}
		_ = term.Close()
		return err
	}
}

// connect opens the terminal, retrying until it appears or ctx is done
func (s *Session) connect(ctx context.Context) (Terminal, error) {
	for attempt := 1; ; attempt++ {
		term, err := s.opts.Open(s.cfg.Terminal)
		if err == nil {
			logging.Info("Connected to terminal",
				zap.String("port", s.cfg.Terminal.Port),
				zap.Int("attempt", attempt),
			)
			return term, nil
		}

		if attempt == 1 {
			logging.Warn("Waiting for terminal", zap.String("port", s.cfg.Terminal.Port), zap.Error(err))
		} else {
			logging.Debug("Terminal still unavailable", zap.Int("attempt", attempt), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.opts.ReconnectDelay):
		}
	}
}

// view is everything rebuilt on reconnect or reload
type view struct {
	provider entity.Provider
	store    *entity.Store
	dash     *dashboard.Dashboard
	loaded   bool
}

func (v *view) close() {
	if c, ok := v.provider.(io.Closer); ok {
		_ = c.Close()
	}
}

func (s *Session) build(ctx context.Context, term Terminal) (*view, error) {
	provider, err := s.opts.NewProvider(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	v := &view{provider: provider, store: entity.NewStore(provider, s.opts.StoreTimeout)}
	if err := v.store.Load(ctx); err != nil {
		logging.Warn("Failed to load entities, will retry", zap.Error(err))
	} else {
		v.loaded = true
	}
	v.dash = s.newDashboard(term, v.store)
	return v, nil
}

func (s *Session) newDashboard(term Terminal, store *entity.Store) *dashboard.Dashboard {
	return dashboard.New(term, store, s.cfg.General.Name, s.cfg.Layout, s.cfg.General.ShowHelp)
}

// poll refreshes entity state. Until the first successful load it retries
// the load instead, and starts a fresh dashboard once entities are known.
func (s *Session) poll(ctx context.Context, term Terminal, v *view) {
	if v.loaded {
		if err := v.store.Refresh(ctx); err != nil {
			logging.Warn("Failed to refresh entities", zap.Error(err))
		}
		return
	}

	if err := v.store.Load(ctx); err != nil {
		logging.Debug("Entities still unavailable", zap.Error(err))
		return
	}
	v.loaded = true
	v.dash = s.newDashboard(term, v.store)
}

// reloadConfig swaps in the configuration at ConfigPath. An invalid file
// keeps the running configuration.
func (s *Session) reloadConfig(ctx context.Context, term Terminal, v *view) *view {
	cfg, err := config.Load(s.opts.ConfigPath)
	if err != nil {
		logging.Warn("Ignoring invalid configuration change", zap.Error(err))
		return v
	}

	old := s.cfg
	s.cfg = cfg
	next, err := s.build(ctx, term)
	if err != nil {
		logging.Warn("Ignoring configuration change", zap.Error(err))
		s.cfg = old
		return v
	}

	logging.Info("Reloaded configuration", zap.String("path", s.opts.ConfigPath))
	v.close()
	return next
}

// serve runs the control loop on one terminal. It returns nil on exit or
// cancellation and ErrTransportLost when the terminal goes away.
func (s *Session) serve(ctx context.Context, term Terminal) error {
	v, err := s.build(ctx, term)
	if err != nil {
		return err
	}
	defer func() { v.close() }()

	lastPoll := time.Now()
	for {
		if ctx.Err() != nil {
			return nil
		}

		if s.reload.Swap(false) {
			v = s.reloadConfig(ctx, term, v)
		}

		interval := s.cfg.General.RefreshInterval.Duration
		if interval <= 0 {
			interval = config.DefaultRefreshInterval
		}
		if time.Since(lastPoll) >= interval {
			s.poll(ctx, term, v)
			lastPoll = time.Now()
		}

		v.dash.Draw()

		ev, err := term.RecvInput(interval)
		if err != nil {
			return err
		}
		if ev.IsZero() {
			continue
		}
		if ev.Key == vt100.KeyInterrupt {
			logging.Info("Interrupted from the terminal")
			return nil
		}
		if ev.Key == vt100.KeyUp || ev.Key == vt100.KeyDown {
			if err := drainRepeats(term, ev); err != nil {
				return err
			}
		}

		switch action := v.dash.ProcessInput(ctx, ev).(type) {
		case dashboard.ExitAction:
			logging.Info("Got request to end session")
			return nil
		case dashboard.SettingAction:
			applySetting(term, v.dash, action)
		}
	}
}

// drainRepeats discards queued copies of ev so a held arrow key cannot
// run ahead of the screen
func drainRepeats(term Terminal, ev vt100.Event) error {
	for {
		next, ok := term.PeekInput()
		if !ok || next != ev {
			return nil
		}
		if _, err := term.RecvInput(0); err != nil {
			return err
		}
	}
}

// applySetting handles "set" commands that change the terminal itself
func applySetting(term Terminal, dash *dashboard.Dashboard, action dashboard.SettingAction) {
	switch action.Setting {
	case "cols", "columns":
		switch action.Value {
		case "80":
			if term.Columns() != vt100.DefaultColumns {
				term.Set80Columns()
			}
		case "132":
			if term.Columns() != vt100.WideColumns {
				term.Set132Columns()
			}
		default:
			dash.DisplayError("Unrecognized column setting " + action.Value)
			return
		}
		dash.ClearInput()
		dash.Draw()
	default:
		dash.DisplayError("Unrecognized setting " + action.Setting)
	}
}
