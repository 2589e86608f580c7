package logger

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutput_JSONOutsideLocal(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	l := NewWithOutput(&buf)
	l.Component("resolver").Info("hello")

	out := buf.String()
	for _, want := range []string{`"msg":"hello"`, `"component":"resolver"`, `"service":"voice-features-go"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"":      logrus.InfoLevel,
		"bogus": logrus.InfoLevel,
	}
	for in, want := range cases {
		if got := levelFromEnv(in); got != want {
			t.Errorf("levelFromEnv(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Request-ID", "abc")
	if got := RequestID(r); got != "abc" {
		t.Fatalf("got %q", got)
	}
	r.Header.Del("X-Request-ID")
	if got := RequestID(r); len(got) != 36 {
		t.Fatalf("expected uuid, got %q", got)
	}
}

func TestWithError_Nil(t *testing.T) {
	l := Discard()
	if l.WithError(nil) != l.Entry {
		t.Fatal("nil error should return base entry")
	}
}
