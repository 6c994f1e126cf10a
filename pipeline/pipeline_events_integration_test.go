package pipeline

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/compose/dataflow/events"
)

type eventHolder struct {
	mu        sync.Mutex
	rawEvents [][]byte
}

func (eh *eventHolder) add(raw []byte) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.rawEvents = append(eh.rawEvents, raw)
}

func (eh *eventHolder) lookupEvent(kind, node string) error {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	evt := struct {
		Name string `json:"name"`
		Node string `json:"node"`
	}{}
	for _, val := range eh.rawEvents {
		if err := json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt.Name == kind && (node == "" || node == evt.Node) {
			return nil
		}
	}
	return fmt.Errorf("unable to locate event %s for node %q in received events", kind, node)
}

func (eh *eventHolder) found(kind, node string) bool {
	return eh.lookupEvent(kind, node) == nil
}

func TestEventsBroadcast(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping EventsBroadcast in short mode")
	}
	data := []struct {
		evt  string
		node string
	}{
		{"boot", ""},
		{"metrics", "up"},
		{"metrics", "out"},
		{"exit", ""},
	}

	eh := &eventHolder{rawEvents: make([][]byte, 0)}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, _ := ioutil.ReadAll(r.Body)
		r.Body.Close()
		eh.add(event)
	}))
	defer ts.Close()

	up := mustNode(t, "up", ident)
	out := mustNode(t, "out", &collector{}, WithNoOutput())
	up.SetDestination(out)

	g := NewGraph("events")
	g.Add(up, out)

	r := NewRunner(g, events.HTTPPostEmitter(ts.URL, "", ""), 10*time.Millisecond, "test")
	runErr := make(chan error, 1)
	go func() { runErr <- r.Run() }()
	waitFor(t, 5*time.Second, "the boot event", func() bool { return eh.found("boot", "") })

	for i := 0; i < 10; i++ {
		up.Put(i)
	}
	waitFor(t, 10*time.Second, "metrics events for both nodes", func() bool {
		return eh.found("metrics", "up") && eh.found("metrics", "out")
	})

	r.Stop()
	if err := <-runErr; err != nil {
		t.Fatalf("unexpected Run error, %s", err)
	}

	for _, val := range data {
		if err := eh.lookupEvent(val.evt, val.node); err != nil {
			t.Errorf("problem validating event, %s", err)
		}
	}
}
