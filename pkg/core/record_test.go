package core

import "testing"

func TestAnnotationRoundTrip(t *testing.T) {
	line := Annotation(123456789)
	if line != "RPI_rx_ts_nanosec:123456789\n" {
		t.Errorf("annotation format: got %q", line)
	}
	n, ok := ParseAnnotation(line)
	if !ok || n != 123456789 {
		t.Errorf("parse: got %d, %v", n, ok)
	}
}

func TestParseAnnotationNoEOL(t *testing.T) {
	n, ok := ParseAnnotation("RPI_rx_ts_nanosec:42")
	if !ok || n != 42 {
		t.Errorf("got %d, %v", n, ok)
	}
}

func TestParseAnnotationCRLF(t *testing.T) {
	n, ok := ParseAnnotation("RPI_rx_ts_nanosec:42\r\n")
	if !ok || n != 42 {
		t.Errorf("got %d, %v", n, ok)
	}
}

func TestParseAnnotationRejects(t *testing.T) {
	for _, line := range []string{
		"R123",
		"RPI_rx_ts_nanosec:",
		"RPI_rx_ts_nanosec:abc",
		"RPI_rx_ts_nanosec:42R999", // device data glued onto the annotation
		"",
	} {
		if _, ok := ParseAnnotation(line); ok {
			t.Errorf("expected reject for %q", line)
		}
	}
}
