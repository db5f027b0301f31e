package errs

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWrapPreservesChain(t *testing.T) {
	root := errors.New("root")
	err := Wrapf(Wrap(root, "save summary"), "recalculate %s", "Products")

	if !errors.Is(err, root) {
		t.Fatalf("errors.Is() = false, want true")
	}
	chain := ErrorChainStrings(err)
	if len(chain) != 3 {
		t.Fatalf("chain len = %d, want 3: %v", len(chain), chain)
	}
	if chain[0] != "recalculate Products: save summary: root" {
		t.Fatalf("chain[0] = %q", chain[0])
	}
}

func TestWithStackCapturesOnce(t *testing.T) {
	err := WithStack(errors.New("boom"))
	again := WithStack(Wrap(err, "outer"))

	var se *StackError
	if !errors.As(again, &se) {
		t.Fatalf("expected StackError in chain")
	}
	if se != err {
		t.Fatalf("WithStack captured a second stack")
	}
}

func TestRecoverConvertsPanicValue(t *testing.T) {
	if Recover(nil) != nil {
		t.Fatalf("Recover(nil) should be nil")
	}

	err := Recover("bad input")
	if err == nil || !strings.Contains(err.Error(), "panic: bad input") {
		t.Fatalf("Recover() = %v", err)
	}

	cause := errors.New("nil map")
	if !errors.Is(Recover(cause), cause) {
		t.Fatalf("Recover(error) should wrap the panic error")
	}
}

func TestLoggableIncludesStack(t *testing.T) {
	value := Loggable(WithStack(errors.New("boom"))).LogValue()
	if value.Kind() != slog.KindGroup {
		t.Fatalf("kind = %v, want group", value.Kind())
	}

	keys := map[string]bool{}
	for _, attr := range value.Group() {
		keys[attr.Key] = true
	}
	for _, key := range []string{"message", "chain", "stack"} {
		if !keys[key] {
			t.Fatalf("missing %q in %v", key, keys)
		}
	}
}
