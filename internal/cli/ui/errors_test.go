package ui

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/conduit-lang/entitymeta/internal/orm/source"
)

func TestFormatError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
	}{
		{
			name: "context and problem",
			opts: ErrorOptions{
				Context: "type not found",
				Problem: `unable to locate type "Ordr"`,
			},
			contains: []string{"❌ TYPE NOT FOUND\n", `   unable to locate type "Ordr"`},
		},
		{
			name: "suggestions and help",
			opts: ErrorOptions{
				Problem:      "bad",
				Suggestions:  []string{"Order", "Orders"},
				HelpCommands: []string{"List types: entitymeta types"},
			},
			contains: []string{"Did you mean: Order, Orders?", "→ List types: entitymeta types"},
		},
		{
			name:     "warning",
			opts:     ErrorOptions{Level: ErrorLevelWarning, Problem: "cache unavailable", Consequence: "fetching directly"},
			contains: []string{"⚠️ cache unavailable", "fetching directly"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.NoColor = true
			out := FormatError(tt.opts)
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestDescribeError(t *testing.T) {
	known := []string{"Order:#Northwind", "Region:#Northwind", "Customer:#Northwind"}

	tests := []struct {
		name        string
		err         error
		context     string
		suggestions int
	}{
		{"lookup", &schema.MetadataNotFoundError{Name: "Ordr"}, "TYPE NOT FOUND", 1},
		{"empty store", &schema.MetadataNotFoundError{Name: "Order", StoreEmpty: true}, "TYPE NOT FOUND", 0},
		{"fetch", &schema.FetchFailedError{ServiceName: "svc/", Err: fmt.Errorf("timeout")}, "FETCH FAILED", 0},
		{"missing document", &schema.FetchFailedError{ServiceName: "svc/", Err: source.ErrDocumentNotFound}, "DOCUMENT NOT FOUND", 0},
		{"missing table", fmt.Errorf("load: %w", source.ErrTableMissing), "METADATA TABLE MISSING", 0},
		{"conflict", &schema.MetadataConflictError{Message: "x"}, "METADATA CONFLICT", 0},
		{"cycle", fmt.Errorf("%w: A -> B -> A", schema.ErrInheritanceCycle), "INVALID HIERARCHY", 0},
		{"configuration", &schema.ConfigurationError{Message: "bad"}, "INVALID METADATA", 0},
		{"other", fmt.Errorf("boom"), "ERROR", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DescribeError(tt.err, known, true)
			if opts.Context != tt.context {
				t.Errorf("Context = %q, want %q", opts.Context, tt.context)
			}
			if len(opts.Suggestions) != tt.suggestions {
				t.Errorf("Suggestions = %v, want %d", opts.Suggestions, tt.suggestions)
			}
			if opts.Problem != tt.err.Error() {
				t.Errorf("Problem = %q", opts.Problem)
			}
		})
	}
}

func TestWriteSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteSuccess(&buf, "fetched 3 types", true)
	if buf.String() != "✓ fetched 3 types\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestConfigErrorAndInfo(t *testing.T) {
	if out := ConfigError("source.kind must be file or sql", true); !strings.Contains(out, "CONFIGURATION ERROR") {
		t.Errorf("missing context: %s", out)
	}
	if out := Info("watching metadata", true); !strings.Contains(out, "ℹ️ watching metadata") {
		t.Errorf("unexpected info: %s", out)
	}
	if out := Warning("stale cache", true); !strings.Contains(out, "⚠️ stale cache") {
		t.Errorf("unexpected warning: %s", out)
	}
}
