package definition

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// Configure adds the entities of d to b. Configuration errors are
// collected by b and reported when the model is finalized.
func (d *Document) Configure(b *schema.ModelBuilder) {
	for _, e := range d.Entities {
		b.SharedEntity(e.Name)
	}
	for i := range d.Entities {
		d.configureEntity(b, &d.Entities[i])
	}
}

func propertyType(p PropertyDef) reflect.Type {
	kind, _ := schema.ParseScalarKind(p.Type)
	t := kind.GoType()
	if p.Nullable && !schema.IsNullableType(t) {
		t = reflect.PointerTo(t)
	}
	return t
}

func (d *Document) configureEntity(b *schema.ModelBuilder, e *EntityDef) {
	eb := b.Entity(e.Name)

	if e.Base != "" {
		eb.HasBaseType(e.Base)
	}
	if e.Abstract {
		eb.Abstract()
	}

	for _, p := range e.Properties {
		pb := eb.PropertyOfType(p.Name, propertyType(p))
		switch p.Generated {
		case "never":
			pb.ValueGeneratedNever()
		case "on_add":
			pb.ValueGeneratedOnAdd()
		case "on_update":
			pb.ValueGeneratedOnUpdate()
		case "on_add_or_update":
			pb.ValueGeneratedOnAddOrUpdate()
		}
	}

	switch {
	case e.Keyless:
		eb.HasNoKey()
	case len(e.Key) > 0:
		eb.HasKey(e.Key...)
	}
	for _, names := range e.AlternateKeys {
		eb.HasAlternateKey(names...)
	}

	if e.Discriminator != nil {
		kind, _ := schema.ParseScalarKind(e.Discriminator.Type)
		eb.HasDiscriminator(e.Discriminator.Property, kind.GoType())
	}
	if e.DiscriminatorValue != nil {
		eb.HasDiscriminatorValue(d.discriminatorValue(e))
	}
	if e.QueryFilter != "" {
		eb.HasQueryFilter(e.QueryFilter)
	}
	if e.ChangeTracking != "" {
		strategy, _ := schema.ParseChangeTrackingStrategy(e.ChangeTracking)
		eb.HasChangeTrackingStrategy(strategy)
	}
	if len(e.Constructor) > 0 {
		eb.HasConstructor(e.Constructor...)
	}
	for name, value := range e.Annotations {
		eb.HasAnnotation(name, value)
	}

	for _, r := range e.Relationships {
		configureRelationship(eb, e, r)
	}

	if len(e.Seed) > 0 {
		rows := make([]interface{}, len(e.Seed))
		for i, row := range e.Seed {
			rows[i] = d.seedRow(e, row)
		}
		eb.HasData(rows...)
	}
}

func configureRelationship(eb *schema.EntityTypeBuilder, e *EntityDef, r RelationshipDef) {
	var rb *schema.RelationshipBuilder
	switch r.Cardinality {
	case ManyToOne:
		rb = eb.HasOne(r.Target, r.Navigation).WithMany(r.Inverse)
	case OneToMany:
		rb = eb.HasMany(r.Target, r.Navigation).WithOne(r.Inverse)
	case OneToOne:
		rb = eb.HasOne(r.Target, r.Navigation).WithOne(r.Inverse).HasForeignKeyOn(e.Name, r.ForeignKey...)
	case ManyToMany:
		eb.HasMany(r.Target, r.Navigation).WithMany(r.Inverse)
		return
	case OwnsOne:
		eb.OwnsOne(r.Target, r.Navigation)
		return
	}

	if len(r.ForeignKey) > 0 && r.Cardinality != OneToOne {
		rb.HasForeignKey(r.ForeignKey...)
	}
	if len(r.PrincipalKey) > 0 {
		rb.HasPrincipalKey(r.PrincipalKey...)
	}
	if r.Required != nil {
		rb.IsRequired(*r.Required)
	}
	if r.OnDelete != "" {
		behavior, _ := schema.ParseDeleteBehavior(r.OnDelete)
		rb.OnDelete(behavior)
	}
}

// root returns the topmost entity of e's hierarchy within the document
func (d *Document) root(e *EntityDef) *EntityDef {
	seen := map[string]bool{}
	for e.Base != "" && !seen[e.Name] {
		seen[e.Name] = true
		base := d.FindEntity(e.Base)
		if base == nil {
			break
		}
		e = base
	}
	return e
}

// discriminatorValue converts the declared value to the discriminator
// type. Values that do not convert are kept as written so validation
// reports them.
func (d *Document) discriminatorValue(e *EntityDef) interface{} {
	root := d.root(e)
	if root.Discriminator == nil {
		return e.DiscriminatorValue
	}
	kind, _ := schema.ParseScalarKind(root.Discriminator.Type)
	if v, err := coerce(e.DiscriminatorValue, kind.GoType()); err == nil {
		return v
	}
	return e.DiscriminatorValue
}

// property finds name among the properties declared by e and its bases
func (d *Document) property(e *EntityDef, name string) (PropertyDef, bool) {
	for cur := e; cur != nil; {
		for _, p := range cur.Properties {
			if p.Name == name {
				return p, true
			}
		}
		if cur.Base == "" || cur.Base == cur.Name {
			break
		}
		cur = d.FindEntity(cur.Base)
	}
	return PropertyDef{}, false
}

// seedRow converts the values of a row to the types of their properties
func (d *Document) seedRow(e *EntityDef, row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for name, value := range row {
		out[name] = value
		p, ok := d.property(e, name)
		if !ok {
			continue
		}
		if v, err := coerce(value, propertyType(p)); err == nil {
			out[name] = v
		}
	}
	return out
}

// String returns a short description of the document
func (d *Document) String() string {
	name := d.Name
	if name == "" {
		name = d.uid.String()
	}
	return fmt.Sprintf("%s (%d entities)", name, len(d.Entities))
}
