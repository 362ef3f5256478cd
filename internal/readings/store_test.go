package readings

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestStoreAppend(t *testing.T) {
	t.Run("should keep the last readings in arrival order", func(t *testing.T) {
		s := NewStore(DEFAULT_HISTORY_SIZE)

		for i := 0; i < 45; i++ {
			s.Append(Reading{Temperature: float64(i), Timestamp: int64(i)})
		}

		snapshot := s.Snapshot()
		if len(snapshot) != DEFAULT_HISTORY_SIZE {
			t.Fatalf("expected %d readings, got %d", DEFAULT_HISTORY_SIZE, len(snapshot))
		}

		for i, r := range snapshot {
			expected := int64(45 - DEFAULT_HISTORY_SIZE + i)
			if r.Timestamp != expected {
				t.Errorf("reading %d: expected timestamp %d, got %d", i, expected, r.Timestamp)
			}
		}
	})

	t.Run("should evict the first reading on the 21st append", func(t *testing.T) {
		s := NewStore(DEFAULT_HISTORY_SIZE)

		for i := 1; i <= 21; i++ {
			s.Append(Reading{Temperature: 20, Timestamp: int64(i)})
		}

		for _, r := range s.Snapshot() {
			if r.Timestamp == 1 {
				t.Fatalf("expected the first reading to be evicted")
			}
		}

		if s.Len() != DEFAULT_HISTORY_SIZE {
			t.Errorf("expected length %d, got %d", DEFAULT_HISTORY_SIZE, s.Len())
		}
	})

	t.Run("should default the capacity", func(t *testing.T) {
		s := NewStore(0)
		if s.Capacity() != DEFAULT_HISTORY_SIZE {
			t.Errorf("expected capacity %d, got %d", DEFAULT_HISTORY_SIZE, s.Capacity())
		}
	})

	t.Run("should keep ordering for serialized concurrent appends", func(t *testing.T) {
		s := NewStore(DEFAULT_HISTORY_SIZE)

		var mu sync.Mutex
		var order []int64
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(ts int64) {
				defer wg.Done()
				mu.Lock()
				s.Append(Reading{Temperature: 20, Timestamp: ts})
				order = append(order, ts)
				mu.Unlock()
			}(int64(i))
		}
		wg.Wait()

		snapshot := s.Snapshot()
		tail := order[len(order)-DEFAULT_HISTORY_SIZE:]
		for i := range snapshot {
			if snapshot[i].Timestamp != tail[i] {
				t.Fatalf("position %d: expected timestamp %d, got %d", i, tail[i], snapshot[i].Timestamp)
			}
		}
	})
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore(3)
	humidity := 40.0
	s.Append(Reading{Temperature: 21, Humidity: &humidity})

	snapshot := s.Snapshot()
	*snapshot[0].Humidity = 99
	snapshot[0].Temperature = 99

	latest, ok := s.Latest()
	if !ok {
		t.Fatal("expected a latest reading")
	}

	if latest.Temperature != 21 || *latest.Humidity != 40 {
		t.Errorf("snapshot mutation leaked into the store: %+v", latest)
	}
}

func TestStoreLatest(t *testing.T) {
	t.Run("should report empty", func(t *testing.T) {
		s := NewStore(DEFAULT_HISTORY_SIZE)
		if _, ok := s.Latest(); ok {
			t.Error("expected an empty store")
		}
	})

	t.Run("should return the last appended reading", func(t *testing.T) {
		s := NewStore(2)
		s.Append(Reading{Temperature: 1})
		s.Append(Reading{Temperature: 2})
		s.Append(Reading{Temperature: 3})

		latest, ok := s.Latest()
		if !ok || latest.Temperature != 3 {
			t.Errorf("expected latest temperature 3, got %v (%v)", latest.Temperature, ok)
		}
	})
}

func TestStoreUpdateLatest(t *testing.T) {
	t.Run("should not update an empty store", func(t *testing.T) {
		s := NewStore(DEFAULT_HISTORY_SIZE)
		called := false
		_, ok := s.UpdateLatest(func(r *Reading) { called = true })
		if ok || called {
			t.Error("expected no update on an empty store")
		}
	})

	t.Run("should update the actuator fields in place", func(t *testing.T) {
		s := NewStore(DEFAULT_HISTORY_SIZE)
		s.Append(Reading{Temperature: 18, AutoControl: true})
		s.Append(Reading{Temperature: 19, AutoControl: true, FanState: FANSTATE_OFF})

		updated, ok := s.UpdateLatest(func(r *Reading) {
			r.AutoControl = false
			r.FanState = FANSTATE_ON
		})
		if !ok {
			t.Fatal("expected the update to apply")
		}

		if updated.Temperature != 19 || updated.FanState != FANSTATE_ON || updated.AutoControl {
			t.Errorf("unexpected updated reading %+v", updated)
		}

		snapshot := s.Snapshot()
		if len(snapshot) != 2 {
			t.Fatalf("expected 2 readings, got %d", len(snapshot))
		}
		if snapshot[0].FanState != "" || !snapshot[0].AutoControl {
			t.Errorf("older reading should be untouched, got %+v", snapshot[0])
		}
	})
}

func TestStoreActuator(t *testing.T) {
	s := NewStore(DEFAULT_HISTORY_SIZE)

	if s.Actuator() != DefaultActuatorState {
		t.Errorf("expected default actuator state, got %+v", s.Actuator())
	}

	s.Append(Reading{Temperature: 30, FanState: FANSTATE_ON, AutoControl: false})
	expected := ActuatorState{FanState: FANSTATE_ON, AutoControl: false}
	if s.Actuator() != expected {
		t.Errorf("expected %+v, got %+v", expected, s.Actuator())
	}

	s.Append(Reading{Temperature: 30, AutoControl: true})
	expected = ActuatorState{FanState: FANSTATE_OFF, AutoControl: true}
	if s.Actuator() != expected {
		t.Errorf("expected %+v, got %+v", expected, s.Actuator())
	}
}

func TestValidateTemperature(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		err   error
	}{
		{"lower bound", -50, nil},
		{"upper bound", 100, nil},
		{"room temperature", 27.5, nil},
		{"too cold", -50.1, ErrTemperatureOutOfRange},
		{"too hot", 100.5, ErrTemperatureOutOfRange},
		{"not a number", math.NaN(), ErrTemperatureNotFinite},
		{"infinite", math.Inf(1), ErrTemperatureNotFinite},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTemperature(tc.value)
			if !errors.Is(err, tc.err) {
				t.Errorf("expected error %v, got %v", tc.err, err)
			}
		})
	}
}

func TestParseFanState(t *testing.T) {
	if s, ok := ParseFanState(" ON "); !ok || s != FANSTATE_ON {
		t.Errorf("expected on, got %q (%v)", s, ok)
	}

	if s, ok := ParseFanState("off"); !ok || s != FANSTATE_OFF {
		t.Errorf("expected off, got %q (%v)", s, ok)
	}

	if _, ok := ParseFanState("auto"); ok {
		t.Error("auto is not a fan state")
	}
}
