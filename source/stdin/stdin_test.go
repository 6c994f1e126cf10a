package stdin

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestStdinRead(t *testing.T) {
	s := &Stdin{in: strings.NewReader("{\"n\":1}\nplain\n")}
	var got []interface{}
	err := s.Read(context.Background(), func(v interface{}) error {
		got = append(got, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected Read error, %s", err)
	}

	want := []interface{}{
		map[string]interface{}{"n": float64(1)},
		"plain",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("wrong items, expected %v, got %v", want, got)
	}
}
