package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("missing %s", "title"), CodeValidation},
		{"auth", Auth("bad credentials"), CodeAuth},
		{"not found", NotFound("no record"), CodeNotFound},
		{"remote", Remote(errors.New("timeout"), "create failed"), CodeRemote},
		{"not supported", NotSupported("no edits"), CodeNotSupported},
		{"method", MethodNotFound("foo.bar"), CodeMethodNotFound},
		{"wrapped", fmt.Errorf("publish: %w", Auth("expired")), CodeAuth},
		{"plain", errors.New("boom"), CodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Fatalf("CodeOf() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Remote(errors.New("503"), "thread interrupted"))
	if !errors.Is(err, ErrRemote) {
		t.Fatal("expected errors.Is to match ErrRemote")
	}
	if errors.Is(err, ErrAuth) {
		t.Fatal("remote error must not match ErrAuth")
	}
}

func TestMethodNotFoundMessage(t *testing.T) {
	err := MethodNotFound("unknown.method")
	if err.Error() != "Method unknown.method not implemented" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRemoteUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Remote(cause, "create record")
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via errors.Is")
	}
	if err.Error() != "create record: connection reset" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
