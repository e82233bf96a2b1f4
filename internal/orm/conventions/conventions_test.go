package conventions

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

type Blog struct {
	ID       int
	Name     string
	Posts    []*Post
	internal int
}

type Post struct {
	ID     int
	Title  string
	BlogID int
	Blog   *Blog
	Draft  bool `orm:"-"`
	Meta   Meta
}

type Meta struct {
	Slug  string
	Audit *Audit
}

type Audit struct {
	CreatedBy string
}

type Person struct {
	ID   int
	Name string
}

type Employee struct {
	Person
	Salary float64
}

type Manager struct {
	Employee
	Reports int
}

type LineItem struct {
	OrderNo string  `orm:"key"`
	Line    int     `orm:"key"`
	Note    *string `orm:"required"`
}

type Widget struct {
	WidgetID int64
	Label    string
}

type Timestamps struct {
	CreatedAt time.Time
}

type Invoice struct {
	Timestamps
	ID    uuid.UUID
	Total float64 `orm:"generated,access=field"`
}

func names[T interface{ Name() string }](items []T) []string {
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = item.Name()
	}
	return result
}

func build(t *testing.T, configure func(b *schema.ModelBuilder)) *schema.Model {
	t.Helper()
	b := schema.NewModelBuilder(NewDefaultSet(zap.NewNop()))
	configure(b)
	m, err := b.FinalizeModel()
	require.NoError(t, err)
	return m
}

func TestDefaultSet_DiscoversPropertiesAndKeys(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(Blog{})
		b.Entity(Post{}).HasOne(Blog{}, "Blog").WithMany("Posts")
	})

	blog := m.FindEntityType("Blog")
	assert.Equal(t, []string{"ID", "Name"}, names(blog.Properties()))
	assert.Equal(t, annotations.SourceConvention, blog.FindProperty("Name").ConfigurationSource())

	pk := blog.FindPrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, []string{"ID"}, pk.PropertyNames())
	assert.Equal(t, annotations.SourceConvention, pk.ConfigurationSource())
	assert.Equal(t, schema.ValueGeneratedOnAdd, pk.Properties()[0].ValueGenerated())

	post := m.FindEntityType("Post")
	assert.Equal(t, []string{"ID", "Title", "BlogID"}, names(post.Properties()))
	assert.True(t, post.IsIgnored("Draft"))

	fk := post.DeclaredForeignKeys()[0]
	assert.Same(t, post.FindProperty("BlogID"), fk.Properties()[0])
	assert.False(t, fk.Properties()[0].IsShadow())
	assert.Equal(t, schema.ValueGeneratedNever, fk.Properties()[0].ValueGenerated())
}

func TestDefaultSet_DiscoversComplexProperties(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(Post{}).Ignore("Blog")
	})

	meta := m.FindEntityType("Post").FindComplexProperty("Meta")
	require.NotNil(t, meta)
	assert.Equal(t, []string{"Slug"}, names(meta.ComplexType().Properties()))

	audit := meta.ComplexType().FindComplexProperty("Audit")
	require.NotNil(t, audit)
	assert.True(t, audit.IsNullable())
	assert.Equal(t, []string{"CreatedBy"}, names(audit.ComplexType().Properties()))
}

func TestDefaultSet_DiscoversBaseTypesInAnyOrder(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(Manager{})
		b.Entity(Person{})
		b.Entity(Employee{})
	})

	person := m.FindEntityType("Person")
	employee := m.FindEntityType("Employee")
	manager := m.FindEntityType("Manager")

	assert.Same(t, person, employee.BaseType())
	assert.Same(t, employee, manager.BaseType())
	assert.Equal(t, annotations.SourceConvention, *manager.BaseTypeConfigurationSource())

	assert.Equal(t, []string{"Salary"}, names(employee.DeclaredProperties()))
	assert.Equal(t, []string{"Reports"}, names(manager.DeclaredProperties()))
	assert.Same(t, person.FindPrimaryKey(), manager.FindPrimaryKey())
	assert.Nil(t, employee.FindDeclaredPrimaryKey())
}

func TestDefaultSet_AddsStringDiscriminator(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(Person{})
		b.Entity(Employee{})
		b.Entity(Manager{})
	})

	person := m.FindEntityType("Person")
	disc := person.DiscriminatorProperty()
	require.NotNil(t, disc)
	assert.Equal(t, DiscriminatorPropertyName, disc.Name())
	assert.True(t, disc.IsShadow())
	assert.Same(t, disc, m.FindEntityType("Manager").DiscriminatorProperty())

	for _, name := range []string{"Person", "Employee", "Manager"} {
		value, ok := m.FindEntityType(name).DiscriminatorValue()
		assert.True(t, ok, name)
		assert.Equal(t, name, value)
	}
}

func TestDefaultSet_KeepsExplicitDiscriminatorValues(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(Person{}).HasDiscriminator("Kind", reflect.TypeOf(""))
		b.Entity(Employee{}).HasDiscriminatorValue("staff")
	})

	value, _ := m.FindEntityType("Employee").DiscriminatorValue()
	assert.Equal(t, "staff", value)
	value, _ = m.FindEntityType("Person").DiscriminatorValue()
	assert.Equal(t, "Person", value)
	assert.Nil(t, m.FindEntityType("Person").FindProperty(DiscriminatorPropertyName))
}

func TestDefaultSet_LeavesNonStringDiscriminatorValues(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(Person{}).HasDiscriminator("Kind", reflect.TypeOf(0))
		b.Entity(Employee{})
	})

	_, ok := m.FindEntityType("Employee").DiscriminatorValue()
	assert.False(t, ok)
}

func TestDefaultSet_ExplicitBaseTypeWins(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(Person{})
		b.Entity(Employee{}).HasBaseType(nil).HasKey("Salary")
	})

	employee := m.FindEntityType("Employee")
	assert.Nil(t, employee.BaseType())
	assert.Equal(t, annotations.SourceExplicit, *employee.BaseTypeConfigurationSource())
	assert.Nil(t, m.FindEntityType("Person").DiscriminatorProperty())
}

func TestDefaultSet_TaggedKeys(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(LineItem{})
	})

	et := m.FindEntityType("LineItem")
	pk := et.FindPrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, []string{"OrderNo", "Line"}, pk.PropertyNames())
	assert.Equal(t, annotations.SourceDataAnnotation, pk.ConfigurationSource())
	assert.Equal(t, schema.ValueGeneratedNever, et.FindProperty("Line").ValueGenerated())
	assert.False(t, et.FindProperty("Note").IsNullable())
}

func TestDefaultSet_TypeNamedKey(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(Widget{})
	})

	pk := m.FindEntityType("Widget").FindPrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, []string{"WidgetID"}, pk.PropertyNames())
	assert.Equal(t, schema.ValueGeneratedOnAdd, pk.Properties()[0].ValueGenerated())
}

func TestDefaultSet_EmbeddedStructAndTagOptions(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		b.Entity(Invoice{})
	})

	et := m.FindEntityType("Invoice")
	assert.Equal(t, []string{"CreatedAt", "ID", "Total"}, names(et.Properties()))
	assert.False(t, et.FindProperty("CreatedAt").IsShadow())

	total := et.FindProperty("Total")
	assert.Equal(t, schema.ValueGeneratedOnAdd, total.ValueGenerated())
	assert.Equal(t, annotations.SourceDataAnnotation, *total.ValueGeneratedConfigurationSource())
	assert.Equal(t, schema.AccessField, total.AccessMode())

	assert.Equal(t, schema.ValueGeneratedOnAdd, et.FindProperty("ID").ValueGenerated())
}

func TestDefaultSet_ExplicitConfigurationIsKept(t *testing.T) {
	m := build(t, func(b *schema.ModelBuilder) {
		blog := b.Entity(Blog{}).Ignore("Name")
		blog.Property("ID").ValueGeneratedNever()
	})

	blog := m.FindEntityType("Blog")
	assert.Nil(t, blog.FindProperty("Name"))
	assert.Equal(t, schema.ValueGeneratedNever, blog.FindProperty("ID").ValueGenerated())
	assert.Equal(t, annotations.SourceExplicit, blog.FindProperty("ID").ConfigurationSource())
}

func TestSet_RegisterReplaceRemove(t *testing.T) {
	s := NewDefaultSet(nil)
	assert.Equal(t,
		[]string{baseTypeDiscoveryAllConvention, PropertyDiscoveryConvention, KeyDiscoveryConvention, DiscriminatorConvention},
		conventionNames(s.Conventions(ModelBuilding)))

	assert.True(t, s.Remove(ModelBuilding, KeyDiscoveryConvention))
	assert.False(t, s.Remove(ModelBuilding, KeyDiscoveryConvention))

	var seen []string
	assert.True(t, s.Replace(ModelFinalizing, KeyValueGenerationConvention, &Convention{
		Name: "Record",
		Model: func(m *schema.Model) error {
			for _, et := range m.EntityTypes() {
				seen = append(seen, et.Name())
			}
			return nil
		},
	}))

	b := schema.NewModelBuilder(s)
	b.Entity(Widget{})
	m, err := b.FinalizeModel()
	require.NoError(t, err)

	assert.Nil(t, m.FindEntityType("Widget").FindPrimaryKey())
	assert.Equal(t, []string{"Widget"}, seen)
}

func TestSet_WrapsConventionErrors(t *testing.T) {
	s := NewSet(nil)
	s.Register(ModelBuilding, &Convention{
		Name:  "Broken",
		Model: func(m *schema.Model) error { return schema.ErrInvalidKey },
	})

	b := schema.NewModelBuilder(s)
	b.Entity(Widget{})
	_, err := b.FinalizeModel()
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidKey)
	assert.Contains(t, err.Error(), "convention Broken failed")
}

func TestNewDefaultSet_NilLogger(t *testing.T) {
	s := NewDefaultSet(nil)
	assert.Len(t, s.Conventions(EntityTypeAdded), 1)
	assert.Len(t, s.Conventions(ModelFinalizing), 1)
}

func conventionNames(list []*Convention) []string {
	result := make([]string, len(list))
	for i, c := range list {
		result[i] = c.Name
	}
	return result
}
