package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestVerbosityGating(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbosity(int(Info))
	Debugf("event=hidden")
	Infof("event=visible")

	out := buf.String()
	if strings.Contains(out, "event=hidden") {
		t.Fatal("debug line leaked at info verbosity")
	}
	if !strings.Contains(out, "event=visible") {
		t.Fatal("info line missing at info verbosity")
	}

	buf.Reset()
	SetVerbosity(int(Error))
	Infof("event=suppressed")
	Errorf("event=failure")

	out = buf.String()
	if strings.Contains(out, "event=suppressed") {
		t.Fatal("info line leaked at error verbosity")
	}
	if !strings.Contains(out, "event=failure") {
		t.Fatal("error line missing")
	}
}

func TestTraceVerbosity(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbosity(int(Trace))
	Tracef("event=fine_grained")

	if !strings.Contains(buf.String(), "event=fine_grained") {
		t.Fatal("trace line missing at trace verbosity")
	}
}
