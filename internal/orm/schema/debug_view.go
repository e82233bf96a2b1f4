package schema

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// DebugView renders the model as indented text. Entity types are ordered by
// name, members in declaration order and annotations by name, so the output
// is stable for a given model.
func DebugView(m ReadOnlyModel) string {
	var b strings.Builder
	b.WriteString("Model:\n")

	for _, et := range m.EntityTypes() {
		writeEntityType(&b, et)
	}
	if model, ok := m.(*Model); ok {
		writeAnnotations(&b, "  ", model.GetAnnotations())
	} else if rt, ok := m.(*RuntimeModel); ok {
		writeAnnotations(&b, "  ", rt.model.GetAnnotations())
	}
	return b.String()
}

func writeEntityType(b *strings.Builder, et *EntityType) {
	fmt.Fprintf(b, "  EntityType: %s", et.name)
	if et.baseType != nil {
		fmt.Fprintf(b, " Base: %s", et.baseType.name)
	}
	var flags []string
	if et.abstract {
		flags = append(flags, "Abstract")
	}
	if et.keyless {
		flags = append(flags, "Keyless")
	}
	if et.shared {
		flags = append(flags, "Shared")
	}
	if et.IsOwned() {
		flags = append(flags, "Owned")
	}
	if len(flags) > 0 {
		b.WriteString(" " + strings.Join(flags, " "))
	}
	b.WriteString("\n")

	if len(et.properties) > 0 {
		b.WriteString("    Properties:\n")
		for _, p := range et.properties {
			writeProperty(b, "      ", p)
		}
	}
	if len(et.complexProperties) > 0 {
		b.WriteString("    Complex properties:\n")
		for _, cp := range et.complexProperties {
			writeComplexProperty(b, "      ", cp)
		}
	}
	if len(et.navigations) > 0 {
		b.WriteString("    Navigations:\n")
		for _, n := range et.navigations {
			kind := "reference"
			if n.IsCollection() {
				kind = "collection"
			}
			fmt.Fprintf(b, "      %s (%s, %s)", n.name, kind, n.TargetEntityType().name)
			if inv := n.Inverse(); inv != nil {
				fmt.Fprintf(b, " Inverse: %s", inv.name)
			}
			b.WriteString("\n")
		}
	}
	if len(et.skipNavigations) > 0 {
		b.WriteString("    Skip navigations:\n")
		for _, s := range et.skipNavigations {
			fmt.Fprintf(b, "      %s (%s)", s.name, s.target.name)
			if join := s.JoinEntityType(); join != nil {
				fmt.Fprintf(b, " Join: %s", join.name)
			}
			if s.inverse != nil {
				fmt.Fprintf(b, " Inverse: %s", s.inverse.name)
			}
			b.WriteString("\n")
		}
	}
	if len(et.keys) > 0 {
		b.WriteString("    Keys:\n")
		for _, k := range et.keys {
			fmt.Fprintf(b, "      %s", k)
			if k.IsPrimaryKey() {
				b.WriteString(" PK")
			}
			b.WriteString("\n")
		}
	}
	if len(et.foreignKeys) > 0 {
		b.WriteString("    Foreign keys:\n")
		for _, fk := range et.foreignKeys {
			fmt.Fprintf(b, "      %s", fk.DisplayName())
			if fk.unique {
				b.WriteString(" Unique")
			}
			if fk.required {
				b.WriteString(" Required")
			}
			if fk.ownership {
				b.WriteString(" Ownership")
			}
			fmt.Fprintf(b, " %s\n", fk.deleteBehavior)
		}
	}
	if et.discriminatorValueSet {
		fmt.Fprintf(b, "    Discriminator value: %v\n", et.discriminatorValue)
	}
	if et.queryFilter != "" {
		fmt.Fprintf(b, "    Query filter: %s\n", et.queryFilter)
	}
	writeAnnotations(b, "    ", et.GetAnnotations())
}

func writeProperty(b *strings.Builder, indent string, p *Property) {
	fmt.Fprintf(b, "%s%s (%s)", indent, p.name, p.goType)
	if p.shadow {
		b.WriteString(" Shadow")
	}
	if p.indexer {
		b.WriteString(" Indexer")
	}
	if !p.IsNullable() {
		b.WriteString(" Required")
	}
	if p.IsPrimaryKey() {
		b.WriteString(" PK")
	}
	if p.IsForeignKey() {
		b.WriteString(" FK")
	}
	if p.valueGenerated != ValueGeneratedNever {
		fmt.Fprintf(b, " ValueGenerated.%s", p.valueGenerated)
	}
	b.WriteString("\n")
}

func writeComplexProperty(b *strings.Builder, indent string, cp *ComplexProperty) {
	fmt.Fprintf(b, "%s%s (%s)", indent, cp.name, cp.complexType.goType)
	if cp.collection {
		b.WriteString(" Collection")
	}
	if !cp.nullable {
		b.WriteString(" Required")
	}
	b.WriteString("\n")
	for _, p := range cp.complexType.properties {
		writeProperty(b, indent+"  ", p)
	}
	for _, nested := range cp.complexType.complexProperties {
		writeComplexProperty(b, indent+"  ", nested)
	}
}

func writeAnnotations(b *strings.Builder, indent string, list []*annotations.Annotation) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(b, "%sAnnotations:\n", indent)
	for _, a := range list {
		fmt.Fprintf(b, "%s  %s: %v\n", indent, a.Name, a.Value)
	}
}
