package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
)

func TestModel_FinalizeHappensOnce(t *testing.T) {
	m := NewModel()
	assert.False(t, m.IsReadOnly())

	finalized, err := m.FinalizeModel()
	require.NoError(t, err)
	assert.Same(t, m, finalized)
	assert.True(t, m.IsReadOnly())

	_, err = m.FinalizeModel()
	assert.ErrorIs(t, err, ErrModelFinalized)
}

func TestModel_ReadOnlyRejectsMutation(t *testing.T) {
	m := NewModel()
	blog, err := m.AddEntityType(typeOf[Blog](), annotations.SourceExplicit)
	require.NoError(t, err)
	name, err := blog.AddProperty("Name", nil, annotations.SourceExplicit)
	require.NoError(t, err)

	_, err = m.FinalizeModel()
	require.NoError(t, err)

	_, err = m.AddEntityType(typeOf[Post](), annotations.SourceExplicit)
	assert.ErrorIs(t, err, annotations.ErrReadOnly)

	_, err = blog.AddProperty("ID", nil, annotations.SourceExplicit)
	assert.ErrorIs(t, err, annotations.ErrReadOnly)

	assert.ErrorIs(t, name.SetNullable(false), annotations.ErrReadOnly)
	assert.ErrorIs(t, blog.SetQueryFilter("x"), annotations.ErrReadOnly)

	_, err = blog.SetAnnotation("Comment", "late")
	assert.ErrorIs(t, err, annotations.ErrReadOnly)
}

func TestModel_RuntimeAnnotationsRequireReadOnly(t *testing.T) {
	m := NewModel()

	_, err := m.AddRuntimeAnnotation("Compiled", true)
	assert.ErrorIs(t, err, annotations.ErrNotReadOnly)
	_, err = m.RuntimeModel()
	assert.ErrorIs(t, err, annotations.ErrNotReadOnly)

	_, err = m.FinalizeModel()
	require.NoError(t, err)

	_, err = m.AddRuntimeAnnotation("Compiled", true)
	assert.NoError(t, err)
}

func TestModel_EntityTypeLookups(t *testing.T) {
	m := NewModel()
	_, err := m.AddEntityType(typeOf[Post](), annotations.SourceExplicit)
	require.NoError(t, err)
	blog, err := m.AddEntityType(typeOf[*Blog](), annotations.SourceExplicit)
	require.NoError(t, err)
	assert.Equal(t, "Blog", blog.Name())

	_, err = m.AddEntityType(typeOf[Blog](), annotations.SourceExplicit)
	assert.ErrorIs(t, err, ErrDuplicateEntityType)

	tags, err := m.AddSharedEntityType("PostTag", nil, annotations.SourceExplicit)
	require.NoError(t, err)
	assert.True(t, tags.IsShared())
	assert.True(t, tags.IsPropertyBag())

	assert.Same(t, blog, m.FindEntityTypeByGoType(typeOf[*Blog]()))
	assert.Nil(t, m.FindEntityTypeByGoType(PropertyBagType()))
	assert.Same(t, tags, m.FindEntityType("PostTag"))

	var names []string
	for _, et := range m.EntityTypes() {
		names = append(names, et.Name())
	}
	assert.Equal(t, []string{"Blog", "Post", "PostTag"}, names)
}

func TestModel_AddEntityTypeRejectsNonStruct(t *testing.T) {
	m := NewModel()
	_, err := m.AddEntityType(typeOf[int](), annotations.SourceExplicit)
	assert.ErrorIs(t, err, ErrInvalidGoType)

	_, err = m.AddSharedEntityType("", nil, annotations.SourceExplicit)
	assert.ErrorIs(t, err, ErrInvalidGoType)
}

func TestModel_RemoveEntityType(t *testing.T) {
	b := NewModelBuilder(nil)
	b.Entity(Blog{}).HasKey("ID")
	b.Entity(Post{}).HasKey("ID").HasOne(Blog{}, "Blog").WithMany("Posts")
	for _, r := range b.relationships {
		require.NoError(t, r.materialize())
	}

	m := b.Model()
	blog := m.FindEntityType("Blog")
	post := m.FindEntityType("Post")

	assert.ErrorIs(t, m.RemoveEntityType(blog), ErrEntityTypeInUse)
	require.NoError(t, m.RemoveEntityType(post))
	assert.Nil(t, m.FindEntityType("Post"))
	assert.Empty(t, blog.Navigations())
	require.NoError(t, m.RemoveEntityType(blog))
	assert.Empty(t, m.EntityTypes())
}

func TestModel_ModelDependenciesSetOnce(t *testing.T) {
	m := NewModel()
	assert.Nil(t, m.ModelDependencies())

	first := &ModelDependencies{Logger: diagnostics.NewLogger()}
	assert.True(t, m.SetModelDependencies(first))
	assert.False(t, m.SetModelDependencies(&ModelDependencies{}))
	assert.False(t, m.SetModelDependencies(nil))
	assert.Same(t, first, m.ModelDependencies())
}

func TestModel_RuntimeModelIsMemoized(t *testing.T) {
	b := NewModelBuilder(nil)
	b.Entity(Blog{}).HasKey("ID")
	b.SharedEntity("Audit").PropertyOfType("ID", typeOf[int]()).Metadata()
	m, err := b.FinalizeModel()
	require.NoError(t, err)

	var g errgroup.Group
	results := make([]*RuntimeModel, 32)
	for i := range results {
		g.Go(func() error {
			rm, err := m.RuntimeModel()
			results[i] = rm
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, rm := range results {
		assert.Same(t, results[0], rm)
	}

	rm := results[0]
	assert.True(t, rm.IsReadOnly())
	assert.Same(t, m, rm.Model())
	assert.Same(t, m.FindEntityType("Blog"), rm.FindEntityTypeByGoType(typeOf[Blog]()))
	assert.Same(t, m.FindEntityType("Audit"), rm.FindEntityType("Audit"))
	assert.Len(t, rm.EntityTypes(), 2)

	annotation := m.FindRuntimeAnnotation(ReadOnlyModelAnnotation)
	require.NotNil(t, annotation)
	assert.Same(t, rm, annotation.Value)
}

func TestEntityType_InheritanceNavigation(t *testing.T) {
	m := NewModel()
	person, err := m.AddEntityType(typeOf[Person](), annotations.SourceExplicit)
	require.NoError(t, err)
	employee, err := m.AddEntityType(typeOf[Employee](), annotations.SourceExplicit)
	require.NoError(t, err)

	require.NoError(t, employee.SetBaseType(person, annotations.SourceConvention))
	assert.Same(t, person, employee.BaseType())
	assert.Same(t, person, employee.RootType())
	assert.True(t, person.IsAssignableFrom(employee))
	assert.False(t, employee.IsAssignableFrom(person))
	assert.True(t, employee.InheritsFrom(person))
	assert.Equal(t, []*EntityType{employee}, person.DerivedTypes())

	err = person.SetBaseType(employee, annotations.SourceExplicit)
	assert.ErrorIs(t, err, ErrInvalidBaseType)

	// a convention cannot undo an explicit choice
	require.NoError(t, employee.SetBaseType(nil, annotations.SourceExplicit))
	require.NoError(t, employee.SetBaseType(person, annotations.SourceConvention))
	assert.Nil(t, employee.BaseType())
}

func TestEntityType_InheritedMembers(t *testing.T) {
	m := NewModel()
	person, _ := m.AddEntityType(typeOf[Person](), annotations.SourceExplicit)
	employee, _ := m.AddEntityType(typeOf[Employee](), annotations.SourceExplicit)
	require.NoError(t, employee.SetBaseType(person, annotations.SourceExplicit))

	id, err := person.AddProperty("ID", nil, annotations.SourceExplicit)
	require.NoError(t, err)
	_, err = person.SetPrimaryKey([]*Property{id}, annotations.SourceExplicit)
	require.NoError(t, err)
	_, err = employee.AddProperty("Salary", nil, annotations.SourceExplicit)
	require.NoError(t, err)

	_, err = employee.AddProperty("ID", nil, annotations.SourceExplicit)
	assert.ErrorIs(t, err, ErrDuplicateMember)

	assert.Same(t, id, employee.FindProperty("ID"))
	assert.Nil(t, employee.FindDeclaredProperty("ID"))
	assert.Same(t, person.FindPrimaryKey(), employee.FindPrimaryKey())
	assert.Equal(t, map[string]int{"ID": 0, "Salary": 1}, employee.PropertyIndexes())

	_, err = m.FinalizeModel()
	require.NoError(t, err)
	assert.Equal(t, []*EntityType{employee}, person.DerivedTypes())
	assert.NotNil(t, person.FindRuntimeAnnotation(DerivedTypesAnnotation))
	assert.Equal(t, map[string]int{"ID": 0, "Salary": 1}, employee.PropertyIndexes())
	assert.NotNil(t, employee.FindRuntimeAnnotation(PropertyIndexesAnnotation))
}

func TestEntityType_PropertyResolution(t *testing.T) {
	m := NewModel()
	post, _ := m.AddEntityType(typeOf[Post](), annotations.SourceExplicit)

	title, err := post.AddProperty("Title", nil, annotations.SourceExplicit)
	require.NoError(t, err)
	assert.False(t, title.IsShadow())
	assert.Equal(t, "Title", title.FieldName())
	assert.Equal(t, typeOf[string](), title.GoType())

	// same name as a field but a different type
	conflicting, err := post.AddProperty("BlogID", typeOf[string](), annotations.SourceExplicit)
	require.NoError(t, err)
	assert.True(t, conflicting.IsShadow())

	_, err = post.AddProperty("Missing", nil, annotations.SourceExplicit)
	assert.ErrorIs(t, err, ErrInvalidGoType)

	shadow, err := post.AddProperty("CreatedBy", typeOf[string](), annotations.SourceExplicit)
	require.NoError(t, err)
	assert.True(t, shadow.IsShadow())
	assert.Empty(t, shadow.FieldName())

	account, _ := m.AddEntityType(typeOf[Account](), annotations.SourceExplicit)
	id, err := account.AddProperty("ID", nil, annotations.SourceExplicit)
	require.NoError(t, err)
	assert.False(t, id.IsShadow(), "backed by accessor methods")
	assert.Equal(t, typeOf[int](), id.GoType())

	bag, _ := m.AddSharedEntityType("Settings", nil, annotations.SourceExplicit)
	value, err := bag.AddProperty("Value", typeOf[string](), annotations.SourceExplicit)
	require.NoError(t, err)
	assert.True(t, value.IsIndexer())
	assert.False(t, value.IsShadow())
}

func TestEntityType_Keys(t *testing.T) {
	m := NewModel()
	post, _ := m.AddEntityType(typeOf[Post](), annotations.SourceExplicit)
	id, _ := post.AddProperty("ID", nil, annotations.SourceExplicit)
	title, _ := post.AddProperty("Title", nil, annotations.SourceExplicit)

	pk, err := post.SetPrimaryKey([]*Property{id}, annotations.SourceConvention)
	require.NoError(t, err)
	assert.True(t, pk.IsPrimaryKey())
	assert.True(t, id.IsPrimaryKey())
	assert.False(t, id.IsNullable())

	alt, err := post.AddKey([]*Property{title}, annotations.SourceExplicit)
	require.NoError(t, err)
	assert.False(t, alt.IsPrimaryKey())
	assert.Equal(t, "{Title}", alt.String())

	_, err = post.AddKey([]*Property{title}, annotations.SourceExplicit)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = post.AddKey(nil, annotations.SourceExplicit)
	assert.ErrorIs(t, err, ErrInvalidKey)

	// explicit beats convention; the convention key is dropped
	pk2, err := post.SetPrimaryKey([]*Property{title}, annotations.SourceExplicit)
	require.NoError(t, err)
	assert.Same(t, alt, pk2)
	assert.Len(t, post.Keys(), 1)

	unchanged, err := post.SetPrimaryKey([]*Property{id}, annotations.SourceConvention)
	require.NoError(t, err)
	assert.Same(t, pk2, unchanged)
}

func TestEntityType_DiscriminatorOnRootOnly(t *testing.T) {
	m := NewModel()
	person, _ := m.AddEntityType(typeOf[Person](), annotations.SourceExplicit)
	employee, _ := m.AddEntityType(typeOf[Employee](), annotations.SourceExplicit)
	require.NoError(t, employee.SetBaseType(person, annotations.SourceExplicit))

	kind, err := person.AddProperty("Kind", typeOf[string](), annotations.SourceExplicit)
	require.NoError(t, err)

	assert.ErrorIs(t, employee.SetDiscriminatorProperty(kind, annotations.SourceExplicit), ErrInvalidDiscriminator)
	require.NoError(t, person.SetDiscriminatorProperty(kind, annotations.SourceExplicit))
	assert.Same(t, kind, employee.DiscriminatorProperty())

	require.NoError(t, employee.SetDiscriminatorValue("E", annotations.SourceExplicit))
	require.NoError(t, employee.SetDiscriminatorValue("Employee", annotations.SourceConvention))
	value, ok := employee.DiscriminatorValue()
	assert.True(t, ok)
	assert.Equal(t, "E", value)
}
