package store

import "testing"

func TestKey(t *testing.T) {
	a := Key("gpt-test", "Just got promoted!")
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %q", a)
	}
	if a != Key("gpt-test", "Just got promoted!") {
		t.Error("Key should be deterministic")
	}
	if a == Key("other-model", "Just got promoted!") {
		t.Error("Key should depend on the model")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("model and text must be separated")
	}
}
