// Package definition loads models described in YAML documents. Entities of
// a document are shared-type property bags configured through the fluent
// model builder.
package definition

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// ErrInvalidDocument wraps every document shape error
var ErrInvalidDocument = errors.New("invalid model definition")

// Document is a parsed model definition
type Document struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Entities []EntityDef `yaml:"entities"`

	uid    uuid.UUID
	digest string
	source string
}

// EntityDef describes one entity type
type EntityDef struct {
	Name               string                   `yaml:"name"`
	Base               string                   `yaml:"base"`
	Abstract           bool                     `yaml:"abstract"`
	Key                []string                 `yaml:"key"`
	Keyless            bool                     `yaml:"keyless"`
	AlternateKeys      [][]string               `yaml:"alternate_keys"`
	Discriminator      *DiscriminatorDef        `yaml:"discriminator"`
	DiscriminatorValue interface{}              `yaml:"discriminator_value"`
	QueryFilter        string                   `yaml:"query_filter"`
	ChangeTracking     string                   `yaml:"change_tracking"`
	Constructor        []string                 `yaml:"constructor"`
	Properties         []PropertyDef            `yaml:"properties"`
	Relationships      []RelationshipDef        `yaml:"relationships"`
	Seed               []map[string]interface{} `yaml:"seed"`
	Annotations        map[string]interface{}   `yaml:"annotations"`
}

// PropertyDef describes a scalar property
type PropertyDef struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Nullable  bool   `yaml:"nullable"`
	Generated string `yaml:"generated"`
}

// DiscriminatorDef names the discriminator property of a hierarchy root
type DiscriminatorDef struct {
	Property string `yaml:"property"`
	Type     string `yaml:"type"`
}

// Cardinality of a relationship seen from the declaring entity
type Cardinality string

const (
	ManyToOne  Cardinality = "many_to_one"
	OneToMany  Cardinality = "one_to_many"
	OneToOne   Cardinality = "one_to_one"
	ManyToMany Cardinality = "many_to_many"
	OwnsOne    Cardinality = "owns_one"
)

// RelationshipDef describes a navigation from the declaring entity to Target
type RelationshipDef struct {
	Navigation   string      `yaml:"navigation"`
	Target       string      `yaml:"target"`
	Inverse      string      `yaml:"inverse"`
	Cardinality  Cardinality `yaml:"cardinality"`
	ForeignKey   []string    `yaml:"foreign_key"`
	PrincipalKey []string    `yaml:"principal_key"`
	Required     *bool       `yaml:"required"`
	OnDelete     string      `yaml:"on_delete"`
}

// Parse decodes and checks a document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	sum := sha256.Sum256(data)
	doc.digest = hex.EncodeToString(sum[:])

	if doc.ID != "" {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: id %q: %v", ErrInvalidDocument, doc.ID, err)
		}
		doc.uid = id
	} else {
		doc.uid = uuid.NewSHA1(uuid.NameSpaceOID, data)
	}

	if err := doc.check(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UID returns the document ID, derived from the content when not declared
func (d *Document) UID() uuid.UUID {
	return d.uid
}

// Digest returns the SHA-256 of the document source
func (d *Document) Digest() string {
	return d.digest
}

// Source returns the path the document was loaded from, if any
func (d *Document) Source() string {
	return d.source
}

// FindEntity returns the entity called name, or nil
func (d *Document) FindEntity(name string) *EntityDef {
	for i := range d.Entities {
		if d.Entities[i].Name == name {
			return &d.Entities[i]
		}
	}
	return nil
}

func invalid(entity, format string, args ...interface{}) error {
	return fmt.Errorf("%w: entity %q: %s", ErrInvalidDocument, entity, fmt.Sprintf(format, args...))
}

func (d *Document) check() error {
	if len(d.Entities) == 0 {
		return fmt.Errorf("%w: no entities", ErrInvalidDocument)
	}

	seen := make(map[string]bool, len(d.Entities))
	for _, e := range d.Entities {
		if e.Name == "" {
			return fmt.Errorf("%w: entity without a name", ErrInvalidDocument)
		}
		if seen[e.Name] {
			return invalid(e.Name, "declared twice")
		}
		seen[e.Name] = true
	}

	for _, e := range d.Entities {
		if e.Base != "" && !seen[e.Base] {
			return invalid(e.Name, "unknown base %q", e.Base)
		}
		if e.ChangeTracking != "" {
			if _, err := schema.ParseChangeTrackingStrategy(e.ChangeTracking); err != nil {
				return invalid(e.Name, "%v", err)
			}
		}
		if e.Discriminator != nil {
			if e.Discriminator.Property == "" {
				return invalid(e.Name, "discriminator without a property")
			}
			if _, err := schema.ParseScalarKind(e.Discriminator.Type); err != nil {
				return invalid(e.Name, "discriminator: %v", err)
			}
		}

		props := make(map[string]bool, len(e.Properties))
		for _, p := range e.Properties {
			if p.Name == "" {
				return invalid(e.Name, "property without a name")
			}
			if props[p.Name] {
				return invalid(e.Name, "property %q declared twice", p.Name)
			}
			props[p.Name] = true
			if _, err := schema.ParseScalarKind(p.Type); err != nil {
				return invalid(e.Name, "property %q: %v", p.Name, err)
			}
			if _, err := parseGenerated(p.Generated); err != nil {
				return invalid(e.Name, "property %q: %v", p.Name, err)
			}
		}

		for _, r := range e.Relationships {
			if !seen[r.Target] {
				return invalid(e.Name, "relationship %q: unknown target %q", r.Navigation, r.Target)
			}
			switch r.Cardinality {
			case ManyToOne, OneToMany, OneToOne, ManyToMany, OwnsOne:
			default:
				return invalid(e.Name, "relationship %q: unknown cardinality %q", r.Navigation, r.Cardinality)
			}
			if r.OnDelete != "" {
				if _, err := schema.ParseDeleteBehavior(r.OnDelete); err != nil {
					return invalid(e.Name, "relationship %q: %v", r.Navigation, err)
				}
			}
		}
	}
	return nil
}

func parseGenerated(s string) (schema.ValueGenerated, error) {
	switch s {
	case "", "never":
		return schema.ValueGeneratedNever, nil
	case "on_add":
		return schema.ValueGeneratedOnAdd, nil
	case "on_update":
		return schema.ValueGeneratedOnUpdate, nil
	case "on_add_or_update":
		return schema.ValueGeneratedOnAddOrUpdate, nil
	default:
		return 0, fmt.Errorf("unknown value generation %q", s)
	}
}
