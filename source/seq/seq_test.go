package seq

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/compose/dataflow/source"
)

func collect(t *testing.T, s *Seq) []interface{} {
	t.Helper()
	var got []interface{}
	err := s.Read(context.Background(), func(v interface{}) error {
		got = append(got, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected Read error, %s", err)
	}
	return got
}

func TestSeqRead(t *testing.T) {
	got := collect(t, &Seq{From: 1, To: 5})
	want := []interface{}{1, 2, 3, 4, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("wrong sequence, expected %v, got %v", want, got)
	}
}

func TestSeqBatches(t *testing.T) {
	got := collect(t, &Seq{From: 1, To: 7, Batch: 3})
	want := []interface{}{
		[]interface{}{1, 2, 3},
		[]interface{}{4, 5, 6},
		[]interface{}{7},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("wrong batches, expected %v, got %v", want, got)
	}
}

func TestSeqEmptyRange(t *testing.T) {
	if got := collect(t, &Seq{From: 5, To: 4}); len(got) != 0 {
		t.Errorf("expected an empty sequence, got %v", got)
	}
}

func TestSeqStopsOnSendError(t *testing.T) {
	stop := errors.New("stop")
	sent := 0
	err := (&Seq{From: 1, To: 100}).Read(context.Background(), func(v interface{}) error {
		sent++
		if sent == 3 {
			return stop
		}
		return nil
	})
	if err != stop {
		t.Errorf("expected the send error back, got %v", err)
	}
	if sent != 3 {
		t.Errorf("expected reading to stop with the error, sent %d items", sent)
	}
}

func TestSeqCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (&Seq{From: 1, To: 10}).Read(ctx, func(v interface{}) error { return nil })
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSeqBadInterval(t *testing.T) {
	err := (&Seq{From: 1, To: 2, Interval: "wat"}).Read(context.Background(), func(v interface{}) error { return nil })
	if err == nil {
		t.Errorf("expected an error for a bad interval, got none")
	}
}

func TestSeqRegistered(t *testing.T) {
	s, err := source.GetSource("seq", map[string]interface{}{"from": 2, "to": 9, "batch": 4})
	if err != nil {
		t.Fatalf("unexpected GetSource error, %s", err)
	}
	seq, ok := s.(*Seq)
	if !ok {
		t.Fatalf("expected a *Seq, got %T", s)
	}
	if seq.From != 2 || seq.To != 9 || seq.Batch != 4 {
		t.Errorf("config was not applied, got %+v", seq)
	}
}
