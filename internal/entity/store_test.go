package entity

import (
	"context"
	"errors"
	"testing"
)

// fakeProvider serves a mutable entity list and records writes
type fakeProvider struct {
	entities []*Entity
	listErr  error

	states  map[string]SwitchState
	readErr error
	setErr  error
	writes  []string
}

func (f *fakeProvider) ListEntities(ctx context.Context) ([]*Entity, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	// Hand out copies so the store cannot alias provider data
	out := make([]*Entity, 0, len(f.entities))
	for _, e := range f.entities {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeProvider) SwitchState(ctx context.Context, id string) (SwitchState, error) {
	if f.readErr != nil {
		return SwitchUnknown, f.readErr
	}
	return f.states[id], nil
}

func (f *fakeProvider) SetSwitch(ctx context.Context, id string, on bool) error {
	f.writes = append(f.writes, id)
	if f.setErr != nil {
		return f.setErr
	}
	if f.states == nil {
		f.states = make(map[string]SwitchState)
	}
	if on {
		f.states[id] = SwitchOn
	} else {
		f.states[id] = SwitchOff
	}
	return nil
}

func newFake() *fakeProvider {
	return &fakeProvider{
		entities: []*Entity{
			{ID: "switch.kitchen", Name: "Kitchen Light", Kind: KindSwitch, Switch: SwitchOff},
			{ID: "sensor.temp", Name: "Temperature", Kind: KindSensor, State: "21.5", Units: "°C"},
			{ID: "sun.sun", Name: "Sun", Kind: KindGeneric},
		},
	}
}

func TestStore_Load(t *testing.T) {
	store := NewStore(newFake(), 0)

	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", store.Len())
	}

	ids := store.IDs()
	if ids[0] != "switch.kitchen" || ids[2] != "sun.sun" {
		t.Errorf("IDs() = %v, want provider order", ids)
	}

	e, ok := store.Get("sensor.temp")
	if !ok {
		t.Fatal("Get(sensor.temp) not found")
	}
	if e.State != "21.5" || e.Units != "°C" {
		t.Errorf("sensor = %v, want 21.5 °C", e)
	}
}

func TestStore_LoadFailureLeavesStoreEmpty(t *testing.T) {
	fake := newFake()
	fake.listErr = errors.New("connection refused")
	store := NewStore(fake, 0)

	if err := store.Load(context.Background()); err == nil {
		t.Error("Load() should return the provider error")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestStore_RefreshPreservesIdentity(t *testing.T) {
	fake := newFake()
	store := NewStore(fake, 0)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	before, _ := store.Get("switch.kitchen")

	fake.entities[0].Switch = SwitchOn
	fake.entities[0].Name = "Kitchen Lamp"
	fake.entities[1].State = "22.0"
	fake.entities = append(fake.entities, &Entity{ID: "switch.new", Kind: KindSwitch})

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	after, _ := store.Get("switch.kitchen")
	if before != after {
		t.Fatal("Refresh() replaced the entity instead of mutating it")
	}
	if after.Switch != SwitchOn || after.Name != "Kitchen Lamp" {
		t.Errorf("switch = %v, want on / Kitchen Lamp", after)
	}

	sensor, _ := store.Get("sensor.temp")
	if sensor.State != "22.0" {
		t.Errorf("sensor state = %q, want 22.0", sensor.State)
	}

	if _, ok := store.Get("switch.new"); ok {
		t.Error("Refresh() should not add entities that were not loaded")
	}
}

func TestStore_RefreshIgnoresKindChange(t *testing.T) {
	fake := newFake()
	store := NewStore(fake, 0)
	_ = store.Load(context.Background())

	fake.entities[0] = &Entity{ID: "switch.kitchen", Name: "Changed", Kind: KindGeneric}
	_ = store.Refresh(context.Background())

	e, _ := store.Get("switch.kitchen")
	if e.Kind != KindSwitch || e.Name != "Kitchen Light" {
		t.Errorf("entity = %v, want unchanged switch", e)
	}
}

func TestStore_RefreshFailureKeepsState(t *testing.T) {
	fake := newFake()
	store := NewStore(fake, 0)
	_ = store.Load(context.Background())

	fake.listErr = errors.New("timeout")
	if err := store.Refresh(context.Background()); err == nil {
		t.Error("Refresh() should report the failure")
	}

	e, _ := store.Get("switch.kitchen")
	if e.Switch != SwitchOff {
		t.Errorf("Switch = %v, want off", e.Switch)
	}
}

func TestStore_ToggleRereadsState(t *testing.T) {
	fake := newFake()
	store := NewStore(fake, 0)
	_ = store.Load(context.Background())

	if err := store.Toggle(context.Background(), "switch.kitchen"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	e, _ := store.Get("switch.kitchen")
	if e.Switch != SwitchOn {
		t.Errorf("Switch = %v, want on", e.Switch)
	}
	if len(fake.writes) != 1 {
		t.Errorf("writes = %v, want one write", fake.writes)
	}
}

func TestStore_ToggleUntrustedWhenRereadFails(t *testing.T) {
	fake := newFake()
	store := NewStore(fake, 0)
	_ = store.Load(context.Background())

	fake.readErr = errors.New("timeout")
	if err := store.Toggle(context.Background(), "switch.kitchen"); err == nil {
		t.Error("Toggle() should report the failed re-read")
	}

	e, _ := store.Get("switch.kitchen")
	if e.Switch != SwitchUnknown {
		t.Errorf("Switch = %v, want unknown", e.Switch)
	}
}

func TestStore_SetSwitchRejectsNonSwitch(t *testing.T) {
	store := NewStore(newFake(), 0)
	_ = store.Load(context.Background())

	if err := store.SetSwitch(context.Background(), "sensor.temp", true); err == nil {
		t.Error("SetSwitch() on a sensor should fail")
	}
	if err := store.Toggle(context.Background(), "switch.missing"); err == nil {
		t.Error("Toggle() on an unknown id should fail")
	}
}

func TestParseSwitchState(t *testing.T) {
	tests := map[string]SwitchState{
		"on":          SwitchOn,
		"ON":          SwitchOn,
		"off":         SwitchOff,
		"unavailable": SwitchUnknown,
		"":            SwitchUnknown,
	}
	for in, want := range tests {
		if got := ParseSwitchState(in); got != want {
			t.Errorf("ParseSwitchState(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEntity_Domain(t *testing.T) {
	e := &Entity{ID: "input_boolean.guest_mode"}
	if e.Domain() != "input_boolean" {
		t.Errorf("Domain() = %q, want input_boolean", e.Domain())
	}
	if (&Entity{ID: "nodot"}).Domain() != "" {
		t.Error("Domain() of an id without a dot should be empty")
	}
}
