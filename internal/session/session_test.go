package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/vtdash/internal/config"
	"github.com/muurk/vtdash/internal/entity"
	"github.com/muurk/vtdash/internal/vt100"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
homeassistant:
  url: http://hass.local:8123
  token: abc123
general:
  name: First Title
  refresh_interval: 20ms
layout:
  - name: Lights
    entities:
      - switch.kitchen
      - sensor.temp
`

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// testTerminal is a real vt100.Terminal over a pipe
type testTerminal struct {
	*vt100.Terminal
	in  *io.PipeWriter
	out *syncBuffer
}

func newTestTerminal(t *testing.T) *testTerminal {
	t.Helper()
	pr, pw := io.Pipe()
	out := &syncBuffer{}
	term := vt100.New(struct {
		io.Reader
		io.Writer
	}{pr, out}, vt100.WithInterrupt())
	t.Cleanup(func() { _ = pw.Close() })
	return &testTerminal{Terminal: term, in: pw, out: out}
}

func (tt *testTerminal) send(t *testing.T, s string) {
	t.Helper()
	_, err := tt.in.Write([]byte(s))
	require.NoError(t, err)
}

// openers hands out terms in order, then fails
func openers(terms ...*testTerminal) (Opener, *atomic.Int32) {
	var calls atomic.Int32
	return func(config.Terminal) (Terminal, error) {
		n := int(calls.Add(1))
		if n > len(terms) {
			return nil, errors.New("no more terminals")
		}
		return terms[n-1], nil
	}, &calls
}

type fakeProvider struct {
	mu        sync.Mutex
	lists     int
	failLists int
	kitchen   entity.SwitchState
}

func (f *fakeProvider) ListEntities(ctx context.Context) ([]*entity.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.lists <= f.failLists {
		return nil, errors.New("hass unreachable")
	}
	return []*entity.Entity{
		{ID: "switch.kitchen", Name: "Kitchen Light", Kind: entity.KindSwitch, Switch: f.kitchen},
		{ID: "sensor.temp", Name: "Temperature", Kind: entity.KindSensor, State: "21.5"},
	}, nil
}

func (f *fakeProvider) SwitchState(ctx context.Context, id string) (entity.SwitchState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kitchen, nil
}

func (f *fakeProvider) SetSwitch(ctx context.Context, id string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if on {
		f.kitchen = entity.SwitchOn
	} else {
		f.kitchen = entity.SwitchOff
	}
	return nil
}

func (f *fakeProvider) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(testYAML), false)
	require.NoError(t, err)
	return cfg
}

func providerFactory(p *fakeProvider) ProviderFactory {
	return func(*config.Config) (entity.Provider, error) { return p, nil }
}

// start runs s in the background and returns a wait function
func start(ctx context.Context, t *testing.T, s *Session) func() error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return func() error {
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("session did not stop")
			return nil
		}
	}
}

func TestRun_ExitCommand(t *testing.T) {
	term := newTestTerminal(t)
	open, _ := openers(term)
	s := New(testConfig(t), Options{Open: open, NewProvider: providerFactory(&fakeProvider{})})

	wait := start(context.Background(), t, s)
	term.send(t, "exit\n")

	require.NoError(t, wait())
	out := term.out.String()
	assert.Contains(t, out, "First Title")
	assert.Contains(t, out, "Kitchen Light")
	assert.True(t, strings.HasSuffix(out, vt100.CmdMoveToOrigin.Sequence()), "terminal reset on exit")
}

func TestRun_Interrupt(t *testing.T) {
	term := newTestTerminal(t)
	open, _ := openers(term)
	s := New(testConfig(t), Options{Open: open, NewProvider: providerFactory(&fakeProvider{})})

	wait := start(context.Background(), t, s)
	term.send(t, "\x03")

	require.NoError(t, wait())
}

func TestRun_ContextCancelled(t *testing.T) {
	term := newTestTerminal(t)
	open, _ := openers(term)
	s := New(testConfig(t), Options{Open: open, NewProvider: providerFactory(&fakeProvider{})})

	ctx, cancel := context.WithCancel(context.Background())
	wait := start(ctx, t, s)
	time.Sleep(50 * time.Millisecond)
	cancel()

	require.NoError(t, wait())
}

func TestRun_ReconnectsAfterTransportLoss(t *testing.T) {
	first := newTestTerminal(t)
	second := newTestTerminal(t)
	open, calls := openers(first, second)
	provider := &fakeProvider{}
	s := New(testConfig(t), Options{
		Open:           open,
		NewProvider:    providerFactory(provider),
		ReconnectDelay: 10 * time.Millisecond,
	})

	_ = first.in.CloseWithError(errors.New("cable pulled"))
	wait := start(context.Background(), t, s)
	second.send(t, "exit\n")

	require.NoError(t, wait())
	assert.Equal(t, int32(2), calls.Load())
	assert.GreaterOrEqual(t, provider.listCalls(), 2, "entities reloaded for the new terminal")
	assert.Contains(t, second.out.String(), "First Title")
}

func TestRun_WaitsForTerminal(t *testing.T) {
	term := newTestTerminal(t)
	var calls atomic.Int32
	open := func(config.Terminal) (Terminal, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("no such device")
		}
		return term, nil
	}
	s := New(testConfig(t), Options{
		Open:           open,
		NewProvider:    providerFactory(&fakeProvider{}),
		ReconnectDelay: 10 * time.Millisecond,
	})

	wait := start(context.Background(), t, s)
	term.send(t, "exit\n")

	require.NoError(t, wait())
	assert.Equal(t, int32(3), calls.Load())
}

func TestRun_ProviderError(t *testing.T) {
	term := newTestTerminal(t)
	open, _ := openers(term)
	s := New(testConfig(t), Options{
		Open: open,
		NewProvider: func(*config.Config) (entity.Provider, error) {
			return nil, errors.New("unknown transport")
		},
	})

	err := s.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestRun_PollsProvider(t *testing.T) {
	term := newTestTerminal(t)
	open, _ := openers(term)
	provider := &fakeProvider{}
	s := New(testConfig(t), Options{Open: open, NewProvider: providerFactory(provider)})

	wait := start(context.Background(), t, s)

	assert.Eventually(t, func() bool { return provider.listCalls() >= 4 }, 3*time.Second, 10*time.Millisecond)

	provider.mu.Lock()
	provider.kitchen = entity.SwitchOn
	provider.mu.Unlock()
	assert.Eventually(t, func() bool { return strings.Contains(term.out.String(), " ON ") }, 3*time.Second, 10*time.Millisecond)

	term.send(t, "\x03")
	require.NoError(t, wait())
}

func TestRun_RetriesInitialLoad(t *testing.T) {
	term := newTestTerminal(t)
	open, _ := openers(term)
	provider := &fakeProvider{failLists: 2}
	s := New(testConfig(t), Options{Open: open, NewProvider: providerFactory(provider)})

	wait := start(context.Background(), t, s)

	assert.Eventually(t, func() bool {
		return strings.Contains(term.out.String(), "Kitchen Light")
	}, 3*time.Second, 10*time.Millisecond)

	term.send(t, "\x03")
	require.NoError(t, wait())
}

func TestRun_Settings(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"set foo=1\n", "Unrecognized setting foo"},
		{"set cols=100\n", "Unrecognized column setting 100"},
		{"set cols\n", "Unrecognized column setting "},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			term := newTestTerminal(t)
			open, _ := openers(term)
			s := New(testConfig(t), Options{Open: open, NewProvider: providerFactory(&fakeProvider{})})

			wait := start(context.Background(), t, s)
			term.send(t, tt.line)
			term.send(t, "\x03")

			require.NoError(t, wait())
			assert.Contains(t, term.out.String(), tt.want)
			assert.Equal(t, vt100.DefaultColumns, term.Columns())
		})
	}
}

func TestRun_SwitchColumns(t *testing.T) {
	term := newTestTerminal(t)
	open, _ := openers(term)
	s := New(testConfig(t), Options{Open: open, NewProvider: providerFactory(&fakeProvider{})})

	wait := start(context.Background(), t, s)
	term.send(t, "set cols=132\n")
	term.send(t, "set columns=132\n")
	term.send(t, "exit\n")

	require.NoError(t, wait())
	assert.Equal(t, vt100.WideColumns, term.Columns())
	assert.Equal(t, 1, strings.Count(term.out.String(), "\x1b[?3h"), "DECCOLM sent once")
}

func TestRun_ReloadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0600))

	term := newTestTerminal(t)
	open, _ := openers(term)
	s := New(testConfig(t), Options{
		ConfigPath:  path,
		Watch:       true,
		Open:        open,
		NewProvider: providerFactory(&fakeProvider{}),
	})

	wait := start(context.Background(), t, s)
	assert.Eventually(t, func() bool {
		return strings.Contains(term.out.String(), "First Title")
	}, 3*time.Second, 10*time.Millisecond)
	// Let the watcher register
	time.Sleep(100 * time.Millisecond)

	// An invalid file is ignored
	require.NoError(t, os.WriteFile(path, []byte("homeassistant: {}\n"), 0600))
	time.Sleep(400 * time.Millisecond)

	updated := strings.Replace(testYAML, "First Title", "Second Title", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))
	assert.Eventually(t, func() bool {
		return strings.Contains(term.out.String(), "Second Title")
	}, 3*time.Second, 10*time.Millisecond)

	term.send(t, "\x03")
	require.NoError(t, wait())
}

func TestDrainRepeats(t *testing.T) {
	term := newTestTerminal(t)

	term.send(t, "\x1b[B\x1b[B\x1b[B\x1b[A")
	ev, err := term.RecvInput(time.Second)
	require.NoError(t, err)
	require.Equal(t, vt100.KeyDown, ev.Key)

	// Let the reader queue the rest
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, drainRepeats(term, ev))

	next, err := term.RecvInput(time.Second)
	require.NoError(t, err)
	assert.Equal(t, vt100.KeyUp, next.Key)
}
