package patch

import (
	"bytes"
	"testing"
)

func TestLoggerLevelGating(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelInfo)

	log.Errorf("error line")
	log.Infof("info line")
	log.Debugf("debug line")

	got := buf.String()
	if !bytes.Contains([]byte(got), []byte("error line")) {
		t.Error("Errorf output missing")
	}
	if !bytes.Contains([]byte(got), []byte("info line")) {
		t.Error("Infof output missing at LevelInfo")
	}
	if bytes.Contains([]byte(got), []byte("debug line")) {
		t.Error("Debugf output present above configured verbosity")
	}
}

func TestNilLoggerWriterIsSilent(t *testing.T) {
	log := NewLogger(nil, LevelDebug)
	log.Errorf("should not panic")
}

func TestPrintfIgnoresVerbosity(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelError)

	log.Printf("forced line")

	if !bytes.Contains(buf.Bytes(), []byte("forced line")) {
		t.Error("Printf output missing despite level gating")
	}
}
