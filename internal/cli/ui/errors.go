package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/metamodel/internal/orm/validation"
)

// ErrorLevel represents the severity of a reported message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

func (l ErrorLevel) colors() (header, body *color.Color, symbol string) {
	switch l {
	case ErrorLevelWarning:
		return color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "⚠"
	case ErrorLevelInfo:
		return color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "ℹ"
	default:
		return color.New(color.FgRed, color.Bold), color.New(color.FgRed), "✗"
	}
}

// FormatError renders a message with optional suggestions and help commands
//
// Example output:
//
//	✗ MODEL INVALID: shop.yml
//	   Order: entity type requires a primary key
//
//	   Call HasKey or HasNoKey.
//
//	   → List diagnostic events: metamodel events
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	headerColor, bodyColor, symbol := opts.Level.colors()
	accent := color.New(color.FgYellow)
	help := color.New(color.FgCyan)
	if opts.NoColor {
		for _, c := range []*color.Color{headerColor, bodyColor, accent, help} {
			c.DisableColor()
		}
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
		accent.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			help.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted message to the writer
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

// ValidationError reports a model that failed to build or validate. A
// *validation.ModelError contributes its hint as the consequence line.
func ValidationError(source string, err error, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "MODEL INVALID: " + source,
		Problem: err.Error(),
		HelpCommands: []string{
			"List diagnostic events: metamodel events",
		},
		NoColor: noColor,
	}

	var modelErr *validation.ModelError
	if errors.As(err, &modelErr) {
		opts.Problem = modelErr.Message
		if modelErr.EntityType != "" {
			owner := modelErr.EntityType
			if modelErr.Member != "" {
				owner += "." + modelErr.Member
			}
			opts.Problem = owner + ": " + modelErr.Message
		}
		if modelErr.Kind != nil {
			opts.Problem += fmt.Sprintf(" (%v)", modelErr.Kind)
		}
		opts.Consequence = modelErr.Hint
	}
	return FormatError(opts)
}

// UnknownEventError reports an event name that matched nothing
func UnknownEventError(name string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "EVENT NOT FOUND",
		Problem:     fmt.Sprintf("Cannot find event '%s'.", name),
		Suggestions: suggestions,
		HelpCommands: []string{
			"See all events: metamodel events",
		},
		NoColor: noColor,
	})
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat metamodel.yml",
			"Get help: metamodel --help",
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
