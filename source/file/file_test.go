package file

import (
	"context"
	"reflect"
	"testing"

	"github.com/compose/dataflow/source"
)

func TestFileRead(t *testing.T) {
	f := &File{Filename: "testdata/items.json"}
	var got []interface{}
	err := f.Read(context.Background(), func(v interface{}) error {
		got = append(got, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected Read error, %s", err)
	}

	want := []interface{}{
		map[string]interface{}{"word": "caffeinated"},
		map[string]interface{}{"word": "sleepy"},
		float64(3),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("wrong items, expected %v, got %v", want, got)
	}
}

func TestFileMissing(t *testing.T) {
	f := &File{Filename: "testdata/no_such_file.json"}
	err := f.Read(context.Background(), func(v interface{}) error { return nil })
	if err == nil {
		t.Errorf("expected an error for a missing file, got none")
	}
}

func TestFileRegistered(t *testing.T) {
	s, err := source.GetSource("file", map[string]interface{}{"filename": "/tmp/items.json"})
	if err != nil {
		t.Fatalf("unexpected GetSource error, %s", err)
	}
	f, ok := s.(*File)
	if !ok {
		t.Fatalf("expected a *File, got %T", s)
	}
	if f.Filename != "/tmp/items.json" {
		t.Errorf("config was not applied, got %q", f.Filename)
	}
}
