package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(Validation, "bad"), http.StatusBadRequest},
		{New(JSON, "bad json"), http.StatusBadRequest},
		{New(NotFound, "missing"), http.StatusNotFound},
		{New(Config, "no bucket"), http.StatusInternalServerError},
		{New(Upstream, "boom"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("outer: %w", New(NotFound, "inner")), http.StatusNotFound},
	}
	for _, c := range cases {
		if got := StatusOf(c.err); got != c.want {
			t.Errorf("StatusOf(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, Upstream, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	cause := errors.New("dial tcp: refused")
	err := Wrap(cause, Upstream, "load records")
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable")
	}
	if err.Error() != "load records: dial tcp: refused" {
		t.Fatalf("got %q", err.Error())
	}
	var e *Error
	if !errors.As(err, &e) || e.Message() != "load records" {
		t.Fatalf("unexpected message: %v", e)
	}
}
