package function

import (
	"errors"
	"sort"
	"testing"
)

type fake struct {
	Suffix string `json:"suffix"`
}

func (f *fake) Apply(data interface{}) (interface{}, error) {
	return data.(string) + f.Suffix, nil
}

func init() {
	Add("fake", func() Function { return &fake{} })
}

func TestGetFunction(t *testing.T) {
	f, err := GetFunction("fake", map[string]interface{}{"suffix": "!"})
	if err != nil {
		t.Fatalf("unexpected GetFunction() error, %s", err)
	}
	out, err := f.Apply("hello")
	if err != nil {
		t.Fatalf("unexpected Apply() error, %s", err)
	}
	if out != "hello!" {
		t.Errorf("wrong result, expected hello!, got %v", out)
	}
}

func TestGetFunctionNotFound(t *testing.T) {
	_, err := GetFunction("nope", map[string]interface{}{})
	wantErr := ErrNotFound{"nope"}
	if err != wantErr {
		t.Errorf("wrong error, expected %s, got %s", wantErr, err)
	}
	if err.Error() != "function 'nope' not found in registry" {
		t.Errorf("wrong error message, got %s", err.Error())
	}
}

func TestRegisteredFunctions(t *testing.T) {
	all := RegisteredFunctions()
	sort.Strings(all)
	found := false
	for _, name := range all {
		if name == "fake" {
			found = true
		}
	}
	if !found {
		t.Errorf("registered function missing from RegisteredFunctions(), got %v", all)
	}
}

func TestSkipSentinel(t *testing.T) {
	if !IsSkip(Skip) {
		t.Errorf("IsSkip(Skip) must be true")
	}
	if IsSkip(nil) {
		t.Errorf("IsSkip(nil) must be false, a nil payload is legitimate")
	}
	if IsSkip("skip") {
		t.Errorf("IsSkip must only match the sentinel type")
	}
}

func TestFuncAdapter(t *testing.T) {
	wantErr := errors.New("boom")
	f := Func(func(data interface{}) (interface{}, error) {
		return nil, wantErr
	})
	if _, err := f.Apply(1); err != wantErr {
		t.Errorf("wrong error, expected %s, got %s", wantErr, err)
	}
}
