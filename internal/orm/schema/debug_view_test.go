package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugView(t *testing.T) {
	m := blogModel(t)

	expected := `Model:
  EntityType: Blog
    Properties:
      ID (int) Required PK
    Navigations:
      Posts (collection, Post) Inverse: Blog
    Keys:
      {ID} PK
  EntityType: Post
    Properties:
      ID (int) Required PK
      BlogID (int) Required FK
    Navigations:
      Blog (reference, Blog) Inverse: Posts
    Keys:
      {ID} PK
    Foreign keys:
      Post {BlogID} -> Blog {ID} Required cascade
  EntityType: Tag
    Properties:
      ID (int) Required PK
    Keys:
      {ID} PK
`
	assert.Equal(t, expected, DebugView(m))
	rm, err := m.RuntimeModel()
	require.NoError(t, err)
	assert.Equal(t, expected, DebugView(rm))
}

func TestDebugView_FlagsAndAnnotations(t *testing.T) {
	b := NewModelBuilder(nil)
	b.HasAnnotation("Schema", "app")
	b.Entity(Person{}).HasKey("ID").Abstract().HasQueryFilter("Name != ''")
	b.Entity(Employee{}).HasBaseType(Person{}).HasDiscriminatorValue("employee").HasAnnotation("Table", "employees")
	b.Entity(Person{}).HasDiscriminator("Kind", typeOf[string]())
	b.SharedEntity("Audit").HasNoKey()

	m, err := b.FinalizeModel()
	require.NoError(t, err)

	out := DebugView(m)
	assert.Contains(t, out, "  EntityType: Audit Keyless Shared\n")
	assert.Contains(t, out, "  EntityType: Employee Base: Person\n")
	assert.Contains(t, out, "  EntityType: Person Abstract\n")
	assert.Contains(t, out, "      Kind (string) Shadow Required\n")
	assert.Contains(t, out, "    Discriminator value: employee\n")
	assert.Contains(t, out, "    Query filter: Name != ''\n")
	assert.Contains(t, out, "    Annotations:\n      Table: employees\n")
	assert.Contains(t, out, "  Annotations:\n    Schema: app\n")
}
