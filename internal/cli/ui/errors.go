package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/conduit-lang/entitymeta/internal/orm/source"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ TYPE NOT FOUND: Ordr
//	   unable to locate type "Ordr" in the metadata store
//
//	   Did you mean: Order?
//
//	   → List types: entitymeta types
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string

	switch opts.Level {
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	}

	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(opts.Context))
		bodyColor.Fprintf(&b, "   %s\n", opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// DescribeError picks the heading and help commands for a metadata error.
// knownTypes feeds the "Did you mean" line of type lookup failures.
func DescribeError(err error, knownTypes []string, noColor bool) ErrorOptions {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "ERROR",
		Problem: err.Error(),
		NoColor: noColor,
	}

	var notFound *schema.MetadataNotFoundError
	switch {
	case errors.As(err, &notFound):
		opts.Context = "TYPE NOT FOUND"
		if notFound.StoreEmpty {
			opts.HelpCommands = []string{"Fetch metadata first: entitymeta fetch <service>"}
		} else {
			opts.Suggestions = SuggestNames(notFound.Name, knownTypes)
			opts.HelpCommands = []string{"List types: entitymeta types <service>"}
		}
	case source.IsTableMissing(err):
		opts.Context = "METADATA TABLE MISSING"
		opts.HelpCommands = []string{"Create it by publishing: entitymeta publish <service> <file>"}
	case source.IsDocumentNotFound(err):
		opts.Context = "DOCUMENT NOT FOUND"
		opts.Consequence = "The configured source holds no metadata for this service."
		opts.HelpCommands = []string{"Check source settings: cat entitymeta.yml"}
	case schema.IsFetchFailed(err):
		opts.Context = "FETCH FAILED"
		opts.Consequence = "The store is unchanged; the fetch can be retried."
	case schema.IsMetadataConflict(err):
		opts.Context = "METADATA CONFLICT"
		opts.Consequence = "Nothing was imported."
	case errors.Is(err, schema.ErrInheritanceCycle), schema.IsUnresolvedTypeReference(err):
		opts.Context = "INVALID HIERARCHY"
		opts.Consequence = "Nothing was imported."
		opts.HelpCommands = []string{"Check the document: entitymeta validate <file>"}
	case schema.IsConfigurationError(err), schema.IsDuplicateProperty(err):
		opts.Context = "INVALID METADATA"
		opts.HelpCommands = []string{"Check the document: entitymeta validate <file>"}
	case schema.IsInvalidOperation(err):
		opts.Context = "INVALID OPERATION"
	}
	return opts
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat entitymeta.yml",
			"Get help: entitymeta --help",
		},
		NoColor: noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelWarning,
		Problem: message,
		NoColor: noColor,
	})
}

// Info creates a standardized info message
func Info(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelInfo,
		Problem: message,
		NoColor: noColor,
	})
}
