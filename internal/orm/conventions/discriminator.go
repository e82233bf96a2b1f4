package conventions

import (
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// DiscriminatorPropertyName names the shadow discriminator added to hierarchies
const DiscriminatorPropertyName = "Discriminator"

var stringType = reflect.TypeOf("")

// applyDiscriminators gives every hierarchy a discriminator. Roots without
// one get a shadow string property; string discriminators get the entity
// name as the value of every type that has none. Missing values of other
// discriminator types are reported by validation.
func applyDiscriminators(m *schema.Model) error {
	for _, root := range m.RootEntityTypes() {
		if len(root.DirectlyDerivedTypes()) == 0 {
			continue
		}

		disc := root.DiscriminatorProperty()
		if disc == nil {
			p := root.FindDeclaredProperty(DiscriminatorPropertyName)
			if p == nil {
				var err error
				p, err = root.AddProperty(DiscriminatorPropertyName, stringType, annotations.SourceConvention)
				if err != nil {
					return err
				}
			}
			if err := root.SetDiscriminatorProperty(p, annotations.SourceConvention); err != nil {
				return err
			}
			disc = root.DiscriminatorProperty()
		}
		if disc == nil || disc.GoType() != stringType {
			continue
		}

		for _, et := range root.DerivedTypesInclusive() {
			if _, ok := et.DiscriminatorValue(); ok {
				continue
			}
			if err := et.SetDiscriminatorValue(et.Name(), annotations.SourceConvention); err != nil {
				return err
			}
		}
	}
	return nil
}
