package format

import (
	"strings"
	"testing"
)

type sample struct {
	ID    string `json:"id" yaml:"id"`
	Views int64  `json:"views" yaml:"views"`
}

func TestJSONFormatter(t *testing.T) {
	var out strings.Builder
	if err := (JSONFormatter{}).Write(&out, sample{ID: "vd-ab12cd34", Views: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := out.String(); got != "{\"id\":\"vd-ab12cd34\",\"views\":3}\n" {
		t.Fatalf("unexpected json %q", got)
	}
}

func TestYAMLFormatter(t *testing.T) {
	var out strings.Builder
	if err := (YAMLFormatter{}).Write(&out, []sample{{ID: "vd-ab12cd34", Views: 3}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "- id: vd-ab12cd34\n  views: 3\n"
	if got := out.String(); got != want {
		t.Fatalf("unexpected yaml %q, want %q", got, want)
	}
}

func TestForName(t *testing.T) {
	tests := []struct {
		name    string
		want    Formatter
		wantErr bool
	}{
		{"", nil, false},
		{"text", nil, false},
		{"JSON", JSONFormatter{}, false},
		{"yaml", YAMLFormatter{}, false},
		{"yml", YAMLFormatter{}, false},
		{"xml", nil, true},
	}
	for _, tt := range tests {
		got, err := ForName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ForName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ForName(%q) = %#v, want %#v", tt.name, got, tt.want)
		}
	}
}
