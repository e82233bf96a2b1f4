// Package initializer turns a built model into the read-only model handed
// to consumers: it finalizes it, validates it once and compiles its
// runtime lookup structures.
package initializer

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
	"github.com/conduit-lang/metamodel/internal/orm/validation"
)

// ErrNilModel is returned when Initialize is called without a model
var ErrNilModel = errors.New("initialize: nil model")

// initMu serializes every model transition in the process. Contexts of the
// same type may race to initialize the model their first use built, and
// validation must run at most once per model. Nothing called while it is
// held may initialize another model.
var initMu sync.Mutex

// RuntimeInitializer finalizes and validates models
type RuntimeInitializer struct {
	validator *validation.ModelValidator
	log       *zap.Logger
}

// Option configures a RuntimeInitializer
type Option func(*RuntimeInitializer)

// WithValidator replaces the default validator, typically to add provider checks
func WithValidator(v *validation.ModelValidator) Option {
	return func(ri *RuntimeInitializer) {
		if v != nil {
			ri.validator = v
		}
	}
}

// WithZap sets the logger used to trace initialization
func WithZap(log *zap.Logger) Option {
	return func(ri *RuntimeInitializer) {
		if log != nil {
			ri.log = log
		}
	}
}

// New creates a RuntimeInitializer running the core validation checks
func New(opts ...Option) *RuntimeInitializer {
	ri := &RuntimeInitializer{
		validator: validation.NewModelValidator(),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ri)
	}
	return ri
}

// Validator returns the validator run during initialization
func (ri *RuntimeInitializer) Validator() *validation.ModelValidator {
	return ri.validator
}

// Initialize finalizes model if needed and initializes its dependencies
// once. Validation runs only when logger is non-nil; a validation error
// leaves the model uninitialized so the next call validates again.
//
// Design-time callers get the finalized *schema.Model. Everyone else gets
// the compiled *schema.RuntimeModel, which is built once per model.
func (ri *RuntimeInitializer) Initialize(model *schema.Model, designTime bool, logger *diagnostics.Logger) (schema.ReadOnlyModel, error) {
	if model == nil {
		return nil, ErrNilModel
	}

	if !model.IsReadOnly() {
		if err := ri.finalize(model); err != nil {
			return nil, err
		}
	}

	if model.ModelDependencies() == nil {
		if err := ri.initializeDependencies(model, logger); err != nil {
			return nil, err
		}
	}

	if designTime {
		return model, nil
	}
	rm, err := model.RuntimeModel()
	if err != nil {
		return nil, fmt.Errorf("compile runtime model: %w", err)
	}
	return rm, nil
}

func (ri *RuntimeInitializer) finalize(model *schema.Model) error {
	initMu.Lock()
	defer initMu.Unlock()

	if model.IsReadOnly() {
		return nil
	}
	if _, err := model.FinalizeModel(); err != nil {
		return fmt.Errorf("finalize model: %w", err)
	}
	ri.log.Debug("model finalized")
	return nil
}

func (ri *RuntimeInitializer) initializeDependencies(model *schema.Model, logger *diagnostics.Logger) error {
	initMu.Lock()
	defer initMu.Unlock()

	if model.ModelDependencies() != nil {
		return nil
	}

	if err := preValidation(model); err != nil {
		return err
	}

	if logger != nil {
		if err := ri.validator.Validate(model, logger); err != nil {
			ri.log.Debug("model validation failed", zap.Error(err))
			return err
		}
	}

	if err := postValidation(model); err != nil {
		return err
	}

	model.SetModelDependencies(&schema.ModelDependencies{Logger: logger})
	ri.log.Debug("model dependencies initialized",
		zap.Int("entity_types", len(model.EntityTypes())),
		zap.Bool("validated", logger != nil))
	return nil
}

// preValidation warms the caches validation itself reads
func preValidation(model *schema.Model) error {
	for _, et := range model.EntityTypes() {
		et.DerivedTypes()
		et.PropertyIndexes()
	}
	return nil
}

// postValidation compiles the lookup structures of the runtime model
func postValidation(model *schema.Model) error {
	if _, err := model.RuntimeModel(); err != nil {
		return fmt.Errorf("compile runtime model: %w", err)
	}
	return nil
}
