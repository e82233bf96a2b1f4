package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conduit-lang/metamodel/internal/orm/validation"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
		excludes []string
	}{
		{
			name: "context puts the problem on its own line",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "config error",
				Problem: "bad value",
			},
			contains: []string{"✗ CONFIG ERROR\n", "   bad value\n"},
		},
		{
			name: "problem only",
			opts: ErrorOptions{
				Level:   ErrorLevelWarning,
				Problem: "cache disabled",
			},
			contains: []string{"⚠ cache disabled\n"},
		},
		{
			name: "suggestions and help",
			opts: ErrorOptions{
				Level:        ErrorLevelInfo,
				Problem:      "unknown",
				Consequence:  "nothing changed",
				Suggestions:  []string{"ModelBuilt", "ModelBuilding"},
				HelpCommands: []string{"See all events: metamodel events"},
			},
			contains: []string{
				"ℹ unknown",
				"   nothing changed\n",
				"Did you mean: ModelBuilt, ModelBuilding?",
				"→ See all events: metamodel events",
			},
		},
		{
			name:     "optional sections omitted",
			opts:     ErrorOptions{Problem: "plain"},
			excludes: []string{"Did you mean", "→"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.NoColor = true
			out := FormatError(tt.opts)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		err := &validation.ModelError{
			Kind:       validation.ErrEntityRequiresKey,
			EntityType: "Order",
			Message:    "no primary key",
			Hint:       "call HasKey or HasNoKey",
		}
		out := ValidationError("shop.yml", err, true)

		assert.Contains(t, out, "MODEL INVALID: SHOP.YML")
		assert.Contains(t, out, "Order: no primary key (entity type requires a primary key)")
		assert.Contains(t, out, "call HasKey or HasNoKey")
		assert.Contains(t, out, "metamodel events")
	})

	t.Run("member and wrapped", func(t *testing.T) {
		err := &validation.ModelError{EntityType: "Order", Member: "Total", Message: "broken"}
		out := ValidationError("a.yml", errors.Join(errors.New("context"), err), true)
		assert.Contains(t, out, "Order.Total: broken\n")
	})

	t.Run("plain error", func(t *testing.T) {
		out := ValidationError("a.yml", errors.New("yaml: line 3"), true)
		assert.Contains(t, out, "   yaml: line 3\n")
	})
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "✓ done", FormatSuccess("done", true))
	assert.Contains(t, UnknownEventError("ModelBuit", []string{"ModelBuilt"}, true), "Cannot find event 'ModelBuit'.")
	assert.Contains(t, ConfigError("logging.level: bad", true), "View config: cat metamodel.yml")
	assert.Contains(t, Warning("careful", true), "⚠ careful")
}
