package main

import (
	"reflect"
	"testing"
)

func TestParseAttachments_EmptyStringReturnsNil(t *testing.T) {
	if got := parseAttachments(""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestParseAttachments_JSONArrayIsParsed(t *testing.T) {
	got := parseAttachments(`["a.go", "b.go"]`)
	want := []string{"a.go", "b.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseAttachments_FallsBackToCSVWhenNotJSON(t *testing.T) {
	got := parseAttachments("a.go, b.go,  c.go")
	want := []string{"a.go", "b.go", "c.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseAttachments_CSVSkipsBlankEntries(t *testing.T) {
	got := parseAttachments("a.go,,b.go")
	want := []string{"a.go", "b.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
