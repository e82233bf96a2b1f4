// Package diagnostics defines the structured events raised while building and
// validating models, and the logger that routes them to zap.
//
// Event IDs are stable and partitioned into reserved blocks so downstream
// tooling can configure behavior per event without matching on text.
package diagnostics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Reserved event ID blocks
const (
	CoreBaseID             = 10000
	CoreDesignBaseID       = 15000
	RelationalBaseID       = 20000
	RelationalDesignBaseID = 25000
	ProviderBaseID         = 30000
	ProviderDesignBaseID   = 35000

	coreModelValidationBaseID = CoreBaseID + 600
	coreModelSourceBaseID     = CoreBaseID + 700
)

// EventID identifies an event by number and name
type EventID struct {
	ID   int
	Name string
}

// String returns "Name (ID)"
func (e EventID) String() string {
	return fmt.Sprintf("%s (%d)", e.Name, e.ID)
}

// WarningBehavior decides what happens when an event is raised
type WarningBehavior int

const (
	// BehaviorLog writes the event to the logger
	BehaviorLog WarningBehavior = iota
	// BehaviorError turns the event into a returned error
	BehaviorError
	// BehaviorIgnore drops the event
	BehaviorIgnore
)

// String returns the string representation of the behavior
func (b WarningBehavior) String() string {
	switch b {
	case BehaviorLog:
		return "log"
	case BehaviorError:
		return "error"
	case BehaviorIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// ParseWarningBehavior converts a string to a WarningBehavior
func ParseWarningBehavior(s string) (WarningBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "log":
		return BehaviorLog, nil
	case "error", "throw":
		return BehaviorError, nil
	case "ignore":
		return BehaviorIgnore, nil
	default:
		return 0, fmt.Errorf("unknown warning behavior: %s", s)
	}
}

// EventDefinition describes one event: its ID, level, message format and
// the behavior used when no override is configured.
type EventDefinition struct {
	EventID
	Level           zapcore.Level
	Format          string
	DefaultBehavior WarningBehavior
}

// Message renders the event message
func (d EventDefinition) Message(args ...interface{}) string {
	return fmt.Sprintf(d.Format, args...)
}

// Core model validation events
var (
	ShadowPropertyCreated = EventDefinition{
		EventID:         EventID{coreModelValidationBaseID, "ShadowPropertyCreated"},
		Level:           zapcore.DebugLevel,
		Format:          "The property '%s.%s' was created in shadow state because there is no eligible struct field with that name.",
		DefaultBehavior: BehaviorLog,
	}

	ShadowForeignKeyPropertyCreated = EventDefinition{
		EventID:         EventID{coreModelValidationBaseID + 1, "ShadowForeignKeyPropertyCreated"},
		Level:           zapcore.DebugLevel,
		Format:          "The foreign key property '%s.%s' was created in shadow state for the relationship to '%s'.",
		DefaultBehavior: BehaviorLog,
	}

	CollectionWithoutComparer = EventDefinition{
		EventID:         EventID{coreModelValidationBaseID + 2, "CollectionWithoutComparer"},
		Level:           zapcore.WarnLevel,
		Format:          "The property '%s.%s' is a collection of type %s but has no value comparer; changes inside the collection will not be detected.",
		DefaultBehavior: BehaviorLog,
	}

	PossibleIncorrectRequiredNavigationWithQueryFilterInteraction = EventDefinition{
		EventID: EventID{coreModelValidationBaseID + 3, "PossibleIncorrectRequiredNavigationWithQueryFilterInteraction"},
		Level:   zapcore.WarnLevel,
		Format: "Entity '%s' has a query filter and is the required end of a relationship with '%s'. " +
			"Rows of '%s' whose principal is filtered out may produce unexpected results. " +
			"Configure the navigation as optional or add a matching filter to '%s'.",
		DefaultBehavior: BehaviorLog,
	}

	ShadowPropertyConflictsWithField = EventDefinition{
		EventID:         EventID{coreModelValidationBaseID + 4, "ShadowPropertyConflictsWithField"},
		Level:           zapcore.WarnLevel,
		Format:          "The shadow property '%s.%s' has the same name as a struct field of type %s that is not mapped to it.",
		DefaultBehavior: BehaviorError,
	}
)

// Core model source events
var (
	ModelCacheHit = EventDefinition{
		EventID:         EventID{coreModelSourceBaseID, "ModelCacheHit"},
		Level:           zapcore.DebugLevel,
		Format:          "Reusing cached model for %s (design time: %t).",
		DefaultBehavior: BehaviorLog,
	}

	ModelBuilding = EventDefinition{
		EventID:         EventID{coreModelSourceBaseID + 1, "ModelBuilding"},
		Level:           zapcore.DebugLevel,
		Format:          "Building model for %s (design time: %t).",
		DefaultBehavior: BehaviorLog,
	}

	ModelBuilt = EventDefinition{
		EventID:         EventID{coreModelSourceBaseID + 2, "ModelBuilt"},
		Level:           zapcore.InfoLevel,
		Format:          "Built model for %s with %d entity types in %s.",
		DefaultBehavior: BehaviorLog,
	}
)

var allEvents = []EventDefinition{
	ShadowPropertyCreated,
	ShadowForeignKeyPropertyCreated,
	CollectionWithoutComparer,
	PossibleIncorrectRequiredNavigationWithQueryFilterInteraction,
	ShadowPropertyConflictsWithField,
	ModelCacheHit,
	ModelBuilding,
	ModelBuilt,
}

// Events returns every known event ordered by ID
func Events() []EventDefinition {
	result := make([]EventDefinition, len(allEvents))
	copy(result, allEvents)
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// FindEvent looks an event up by name (case-insensitive) or numeric ID
func FindEvent(nameOrID string) (EventDefinition, bool) {
	if id, err := strconv.Atoi(nameOrID); err == nil {
		for _, def := range allEvents {
			if def.ID == id {
				return def, true
			}
		}
		return EventDefinition{}, false
	}
	for _, def := range allEvents {
		if strings.EqualFold(def.Name, nameOrID) {
			return def, true
		}
	}
	return EventDefinition{}, false
}

// Block returns the name of the reserved block an event ID belongs to
func Block(id int) string {
	switch {
	case id >= ProviderDesignBaseID:
		return "provider-design"
	case id >= ProviderBaseID:
		return "provider"
	case id >= RelationalDesignBaseID:
		return "relational-design"
	case id >= RelationalBaseID:
		return "relational"
	case id >= CoreDesignBaseID:
		return "core-design"
	case id >= CoreBaseID:
		return "core"
	default:
		return "unknown"
	}
}
