package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/grandcat/zeroconf"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/muurk/vtdash/internal/logging"
	"github.com/muurk/vtdash/internal/version"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service the endpoint advertises as
	ServiceType = "_vtdash._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// TerminalType is reported as "type" in the status document
	TerminalType = "vt-100"
)

// Config holds the monitor configuration
type Config struct {
	Host      string
	Port      int  // 0 picks a free port
	Advertise bool // Register ServiceType over mDNS
	Name      string
}

// Status is the document served on GET /
type Status struct {
	Type     string `json:"type"`
	Version  string `json:"version"`
	Instance string `json:"instance"`
	Started  string `json:"started"`
	Uptime   string `json:"uptime"`
}

// Server is the monitoring endpoint. It shares nothing mutable with the
// dashboard session.
type Server struct {
	config   *Config
	echo     *echo.Echo
	instance uuid.UUID
	started  time.Time
	now      func() time.Time

	mu       sync.Mutex
	listener net.Listener
	mdns     *zeroconf.Server
	done     chan error
}

// New creates a Server. Nothing listens until Start.
func New(config *Config) *Server {
	s := &Server{
		config:   config,
		instance: uuid.New(),
		started:  time.Now(),
		now:      time.Now,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.GET("/", s.status)
	e.GET("/healthz", s.healthz)
	s.echo = e

	return s
}

// Instance returns the id reported in the status document and TXT records
func (s *Server) Instance() string {
	return s.instance.String()
}

// Handler exposes the routes without starting a listener
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Status builds the current status document
func (s *Server) Status() Status {
	return Status{
		Type:     TerminalType,
		Version:  version.Version,
		Instance: s.instance.String(),
		Started:  s.started.UTC().Format(time.RFC3339),
		Uptime:   strings.TrimSpace(humanize.RelTime(s.started, s.now(), "", "")),
	}
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Status())
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Start listens and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("monitor already started")
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.echo.Listener = listener

	s.done = make(chan error, 1)
	go func() {
		err := s.echo.Start("")
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	logging.Info("Monitoring endpoint listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("instance", s.instance.String()),
	)

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		server, err := zeroconf.Register(s.serviceName(), ServiceType, ServiceDomain, port, s.txtRecords(), nil)
		if err != nil {
			// The endpoint still works without advertisement
			logging.Warn("Failed to advertise monitoring endpoint", zap.Error(err))
		} else {
			s.mdns = server
			logging.Info("Advertising monitoring endpoint",
				zap.String("service", ServiceType),
				zap.Int("port", port),
			)
		}
	}

	return nil
}

// Addr returns the listening address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) serviceName() string {
	if s.config.Name != "" {
		return s.config.Name
	}
	return "vtdash-" + s.instance.String()[:8]
}

func (s *Server) txtRecords() []string {
	return []string{
		"id=" + s.instance.String(),
		"version=" + version.Version,
		"type=" + TerminalType,
	}
}

// Shutdown withdraws the advertisement and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	logging.Info("Shutting down monitoring endpoint")

	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down monitoring endpoint: %w", err)
	}

	select {
	case err := <-s.done:
		return err
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}
}
