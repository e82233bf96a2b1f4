// Package conventions holds the rules that complete a model from the shape
// of its Go types before explicit configuration is validated.
package conventions

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// Event selects when a convention runs
type Event int

const (
	// EntityTypeAdded runs as soon as an entity type joins the model
	EntityTypeAdded Event = iota
	// ModelBuilding runs once explicit configuration is complete, before
	// relationships are materialized
	ModelBuilding
	// ModelFinalizing runs after relationships are materialized
	ModelFinalizing
)

// String returns the string representation of the event
func (e Event) String() string {
	switch e {
	case EntityTypeAdded:
		return "entity_type_added"
	case ModelBuilding:
		return "model_building"
	case ModelFinalizing:
		return "model_finalizing"
	default:
		return "unknown"
	}
}

// EntityTypeFunc processes a single entity type
type EntityTypeFunc func(et *schema.EntityType) error

// ModelFunc processes the whole model
type ModelFunc func(m *schema.Model) error

// Convention is a named rule. EntityType is used for EntityTypeAdded,
// Model for the model events.
type Convention struct {
	Name       string
	EntityType EntityTypeFunc
	Model      ModelFunc
}

// Set is an ordered collection of conventions per event. It implements
// schema.ConventionDispatcher.
type Set struct {
	conventions map[Event][]*Convention
	logger      *zap.Logger
}

var _ schema.ConventionDispatcher = (*Set)(nil)

// NewSet creates an empty convention set
func NewSet(logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{
		conventions: make(map[Event][]*Convention),
		logger:      logger,
	}
}

// Register appends a convention to the event
func (s *Set) Register(event Event, c *Convention) {
	s.conventions[event] = append(s.conventions[event], c)
}

// Conventions returns the conventions registered for an event in run order
func (s *Set) Conventions(event Event) []*Convention {
	return s.conventions[event]
}

// Replace swaps the convention called name for c and reports whether it was found
func (s *Set) Replace(event Event, name string, c *Convention) bool {
	for i, existing := range s.conventions[event] {
		if existing.Name == name {
			s.conventions[event][i] = c
			return true
		}
	}
	return false
}

// Remove drops the convention called name and reports whether it was found
func (s *Set) Remove(event Event, name string) bool {
	list := s.conventions[event]
	for i, existing := range list {
		if existing.Name == name {
			s.conventions[event] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// OnEntityTypeAdded runs the EntityTypeAdded conventions
func (s *Set) OnEntityTypeAdded(et *schema.EntityType) error {
	for _, c := range s.conventions[EntityTypeAdded] {
		if c.EntityType == nil {
			continue
		}
		s.logger.Debug("applying convention",
			zap.String("convention", c.Name),
			zap.String("entity_type", et.Name()))
		if err := c.EntityType(et); err != nil {
			return fmt.Errorf("convention %s failed on %s: %w", c.Name, et.Name(), err)
		}
	}
	return nil
}

// OnModelBuilding runs the ModelBuilding conventions
func (s *Set) OnModelBuilding(m *schema.Model) error {
	return s.runModel(ModelBuilding, m)
}

// OnModelFinalizing runs the ModelFinalizing conventions
func (s *Set) OnModelFinalizing(m *schema.Model) error {
	return s.runModel(ModelFinalizing, m)
}

func (s *Set) runModel(event Event, m *schema.Model) error {
	for _, c := range s.conventions[event] {
		if c.Model == nil {
			continue
		}
		s.logger.Debug("applying convention",
			zap.String("convention", c.Name),
			zap.Stringer("event", event))
		if err := c.Model(m); err != nil {
			return fmt.Errorf("convention %s failed: %w", c.Name, err)
		}
	}
	return nil
}

// Convention names used by the default set
const (
	BaseTypeDiscoveryConvention    = "BaseTypeDiscovery"
	PropertyDiscoveryConvention    = "PropertyDiscovery"
	KeyDiscoveryConvention         = "KeyDiscovery"
	DiscriminatorConvention        = "Discriminator"
	KeyValueGenerationConvention   = "KeyValueGeneration"
	baseTypeDiscoveryAllConvention = "BaseTypeDiscoveryAll"
)

// NewDefaultSet creates the convention set used by the model source
func NewDefaultSet(logger *zap.Logger) *Set {
	s := NewSet(logger)
	s.Register(EntityTypeAdded, &Convention{Name: BaseTypeDiscoveryConvention, EntityType: discoverBaseType})
	s.Register(ModelBuilding, &Convention{Name: baseTypeDiscoveryAllConvention, Model: discoverBaseTypes})
	s.Register(ModelBuilding, &Convention{Name: PropertyDiscoveryConvention, Model: discoverProperties})
	s.Register(ModelBuilding, &Convention{Name: KeyDiscoveryConvention, Model: discoverKeys})
	s.Register(ModelBuilding, &Convention{Name: DiscriminatorConvention, Model: applyDiscriminators})
	s.Register(ModelFinalizing, &Convention{Name: KeyValueGenerationConvention, Model: applyKeyValueGeneration})
	return s
}
