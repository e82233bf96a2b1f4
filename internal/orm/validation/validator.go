// Package validation checks a finalized model against the invariants the
// rest of the ORM relies on. Hard violations are returned as *ModelError;
// surprising but usable configurations are raised as diagnostics events.
package validation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// CheckFunc inspects the model and returns the first violation it finds
type CheckFunc func(m *schema.Model, logger *diagnostics.Logger) error

// Check is a named validation step
type Check struct {
	Name string
	Run  CheckFunc
}

// ModelValidator runs checks in a fixed order and stops at the first
// violation. Each check assumes the earlier ones passed only for the
// clarity of its messages; it never relies on them for correctness.
type ModelValidator struct {
	checks []Check
	log    *zap.Logger
}

// Option configures a ModelValidator
type Option func(*ModelValidator)

// WithChecks appends provider checks after the core ones
func WithChecks(checks ...Check) Option {
	return func(v *ModelValidator) {
		v.checks = append(v.checks, checks...)
	}
}

// WithZap sets the logger used to trace check execution
func WithZap(log *zap.Logger) Option {
	return func(v *ModelValidator) {
		if log != nil {
			v.log = log
		}
	}
}

// NewModelValidator creates a validator running CoreChecks followed by any
// checks added with WithChecks
func NewModelValidator(opts ...Option) *ModelValidator {
	v := &ModelValidator{
		checks: CoreChecks(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CoreChecks returns the provider-independent checks in run order
func CoreChecks() []Check {
	return []Check{
		{Name: "NoShadowEntities", Run: validateNoShadowEntities},
		{Name: "MemberNames", Run: validateMemberNames},
		{Name: "NonNullPrimaryKeys", Run: validateNonNullPrimaryKeys},
		{Name: "NoMutableKeys", Run: validateNoMutableKeys},
		{Name: "ComparableKeys", Run: validateComparableKeys},
		{Name: "NoShadowKeys", Run: validateNoShadowKeys},
		{Name: "GoInheritance", Run: validateGoInheritance},
		{Name: "InheritanceMapping", Run: validateInheritanceMapping},
		{Name: "Relationships", Run: validateRelationships},
		{Name: "NoIdentifyingCycles", Run: validateNoIdentifyingCycles},
		{Name: "Ownership", Run: validateOwnership},
		{Name: "SkipNavigations", Run: validateSkipNavigations},
		{Name: "FieldMapping", Run: validateFieldMapping},
		{Name: "NavigationTypes", Run: validateNavigationTypes},
		{Name: "QueryFilters", Run: validateQueryFilters},
		{Name: "DiscriminatorValues", Run: validateDiscriminatorValues},
		{Name: "ChangeTracking", Run: validateChangeTracking},
		{Name: "PropertyMapping", Run: validatePropertyMapping},
		{Name: "SeedData", Run: validateSeedData},
	}
}

// Checks returns the checks in run order
func (v *ModelValidator) Checks() []Check {
	return append([]Check(nil), v.checks...)
}

// Validate runs every check against m. logger receives soft warnings and
// may be nil, in which case warnings are dropped.
func (v *ModelValidator) Validate(m *schema.Model, logger *diagnostics.Logger) error {
	if m == nil {
		return fmt.Errorf("validate: nil model")
	}
	for _, check := range v.checks {
		v.log.Debug("running model check", zap.String("check", check.Name))
		if err := check.Run(m, logger); err != nil {
			v.log.Debug("model check failed", zap.String("check", check.Name), zap.Error(err))
			return err
		}
	}
	return nil
}
