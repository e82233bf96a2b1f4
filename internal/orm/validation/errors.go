package validation

import (
	"errors"
	"strings"

	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// Model invariant violations. Validate returns a *ModelError whose Kind is
// one of these, so callers can match with errors.Is.
var (
	ErrShadowEntity                   = errors.New("shadow entity type")
	ErrConflictingMemberName          = errors.New("conflicting member name")
	ErrEntityRequiresKey              = errors.New("entity type requires a primary key")
	ErrMutableKeyProperty             = errors.New("key property generated on update")
	ErrKeyPropertyNotComparable       = errors.New("key property not comparable")
	ErrReferencedShadowKey            = errors.New("referenced shadow key")
	ErrInconsistentInheritance        = errors.New("inconsistent inheritance")
	ErrAbstractLeafType               = errors.New("abstract leaf type")
	ErrDerivedTypeDefinesKey          = errors.New("derived type defines a key")
	ErrKeylessMismatch                = errors.New("keyless mismatch")
	ErrForeignKeyMismatch             = errors.New("foreign key mismatch")
	ErrAmbiguousOneToOne              = errors.New("ambiguous one-to-one relationship")
	ErrIdentifyingRelationshipCycle   = errors.New("identifying relationship cycle")
	ErrMultipleOwnerships             = errors.New("multiple ownerships")
	ErrOwnedTypeInheritance           = errors.New("owned type in inheritance hierarchy")
	ErrNavigationlessOwnership        = errors.New("ownership without navigation")
	ErrPrincipalOwnedType             = errors.New("owned type on principal side")
	ErrSkipNavigationNoForeignKey     = errors.New("skip navigation without foreign key")
	ErrSkipNavigationNoInverse        = errors.New("skip navigation inverse mismatch")
	ErrConstructorParameter           = errors.New("unbound constructor parameter")
	ErrNavigationWrongType            = errors.New("navigation has wrong type")
	ErrFilterOnDerivedType            = errors.New("query filter on derived type")
	ErrNoDiscriminatorProperty        = errors.New("no discriminator property")
	ErrNoDiscriminatorValue           = errors.New("no discriminator value")
	ErrDiscriminatorValueIncompatible = errors.New("discriminator value incompatible")
	ErrDuplicateDiscriminatorValue    = errors.New("duplicate discriminator value")
	ErrChangeTrackingNotSupported     = errors.New("change tracking strategy not supported")
	ErrSeedDatumMissingValue          = errors.New("seed datum missing value")
	ErrSeedDatumSignedNumericValue    = errors.New("seed datum signed numeric default")
	ErrSeedDatumDefaultValue          = errors.New("seed datum default value")
	ErrSeedDatumIncompatibleValue     = errors.New("seed datum incompatible value")
	ErrSeedDatumNavigation            = errors.New("seed datum navigation")
	ErrSeedDatumComplexProperty       = errors.New("seed datum complex property")
	ErrSeedDatumDuplicate             = errors.New("seed datum duplicate")
)

// Member access failures are reported with the schema sentinels
var (
	ErrNoFieldOrGetter = schema.ErrNoFieldOrGetter
	ErrNoFieldOrSetter = schema.ErrNoFieldOrSetter
	ErrNoBackingField  = schema.ErrNoBackingField
	ErrNoGetter        = schema.ErrNoGetter
	ErrNoSetter        = schema.ErrNoSetter
)

// ModelError reports a model invariant violation
type ModelError struct {
	Kind       error
	EntityType string
	Member     string
	Message    string
	Hint       string
}

// Error implements the error interface
func (e *ModelError) Error() string {
	var b strings.Builder

	if e.EntityType != "" {
		b.WriteString(e.EntityType)
		if e.Member != "" {
			b.WriteString(".")
			b.WriteString(e.Member)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// Unwrap returns Kind
func (e *ModelError) Unwrap() error {
	return e.Kind
}
