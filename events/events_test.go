package events

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestEvent(t *testing.T) {
	data := []struct {
		in         Event
		want       []byte
		wantString string
	}{
		{
			NewBootEvent(12345, "", "1.2.3", nil),
			[]byte(`{"ts":12345,"name":"boot","version":"1.2.3"}`),
			`boot map[]`,
		},
		{
			NewBootEvent(12345, "run-1", "1.2.3", map[string]string{"nick": "yay"}),
			[]byte(`{"ts":12345,"name":"boot","id":"run-1","version":"1.2.3","endpoints":{"nick":"yay"}}`),
			`boot map[nick:yay]`,
		},
		{
			NewMetricsEvent(12345, "nick", NodeMetrics{QueueLen: 3, QueueCap: 10, InFlight: 4, Workers: 4, Processed: 120}),
			[]byte(`{"ts":12345,"name":"metrics","node":"nick","queue_len":3,"queue_cap":10,"in_flight":4,"workers":4,"processed":120}`),
			`metrics nick queue: 3/10 in flight: 4 processed: 120`,
		},
		{
			NewExitEvent(12345, "", "1.2.3", nil),
			[]byte(`{"ts":12345,"name":"exit","version":"1.2.3"}`),
			`exit map[]`,
		},
		{
			NewErrorEvent(12345, "test", map[string]string{"hello": "world"}, "something broke"),
			[]byte(`{"ts":12345,"name":"error","node":"test","record":{"hello":"world"},"message":"something broke"}`),
			`error record: map[hello:world], message: something broke`,
		},
	}

	for _, d := range data {
		ba, err := d.in.Emit()
		if err != nil {
			t.Errorf("got error: %s", err)
			t.FailNow()
		}

		if !reflect.DeepEqual(ba, []byte(d.want)) {
			t.Errorf("Emit() failed, wanted: %s, got: %s", d.want, ba)
		}

		if !reflect.DeepEqual(d.in.String(), d.wantString) {
			t.Errorf("String() failed, wanted: %s, got: %s", d.wantString, d.in.String())
		}
	}
}

func TestEmitter(t *testing.T) {
	events := make(chan Event, 10)
	var (
		mu   sync.Mutex
		seen []string
	)
	e := NewEmitter(events, func(event Event) error {
		mu.Lock()
		seen = append(seen, event.String())
		mu.Unlock()
		return nil
	})

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(seen)
	}
	wait := func(n int) {
		deadline := time.Now().Add(2 * time.Second)
		for count() < n {
			if time.Now().After(deadline) {
				t.Fatalf("expected %d events to be emitted, got %d", n, count())
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	e.Start()
	events <- NewBootEvent(1, "", "test", nil)
	wait(1)
	events <- NewExitEvent(2, "", "test", nil)
	wait(2)
	e.Stop()

	mu.Lock()
	defer mu.Unlock()
	if seen[0] != "boot map[]" {
		t.Errorf("wrong first event, got %s", seen[0])
	}
}
