package validation

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/conventions"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

type Blog struct {
	ID    int
	Name  string
	Posts []*Post
}

type Post struct {
	ID     int
	Title  string
	BlogID int
	Blog   *Blog
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

type Address struct {
	Street string
}

type Customer struct {
	ID      int
	Address *Address
}

type Supplier struct {
	ID      int
	Address *Address
}

type Husband struct {
	ID   int
	Wife *Wife
}

type Wife struct {
	ID      int
	Husband *Husband
}

type Invoice struct {
	ID    uuid.UUID
	Total float64
}

type Document struct {
	Tags []string `orm:"key"`
}

type Ledger struct {
	ID    int
	total int
}

func (l *Ledger) Total() int { return l.total }

type Library struct {
	ID    int
	Books map[int]*Book
}

type Book struct {
	ID        int
	LibraryID int
	Library   *Library
}

type Article struct {
	ID   int
	Tags []string
}

type Tracked struct {
	ID   int
	Name string
}

func (t *Tracked) OnPropertyChanged(handler func(name string)) {}

type FullyTracked struct {
	Tracked
	Note string
}

func (t *FullyTracked) OnPropertyChanging(handler func(name string)) {}

type Student struct {
	ID      int
	Courses []*Course
}

type Course struct {
	ID       int
	Students []*Student
}

var intType = reflect.TypeOf(0)

func build(t *testing.T, configure func(b *schema.ModelBuilder)) *schema.Model {
	t.Helper()
	b := schema.NewModelBuilder(conventions.NewDefaultSet(zap.NewNop()))
	configure(b)
	m, err := b.FinalizeModel()
	require.NoError(t, err)
	return m
}

func blogModel(b *schema.ModelBuilder) {
	b.Entity(Blog{})
	b.Entity(Post{}).HasOne(Blog{}, "Blog").WithMany("Posts")
}

// linkEmployeeToPerson adds a unique foreign key from Employee's primary key
// to the same key on Person without choosing a principal end
func linkEmployeeToPerson(b *schema.ModelBuilder) {
	b.Entity(Person{}).HasKey("ID")
	b.Entity(Employee{})

	m := b.Model()
	employee, person := m.FindEntityType("Employee"), m.FindEntityType("Person")
	pk := person.FindPrimaryKey()
	fk, err := employee.AddForeignKey(pk.Properties(), pk, person, annotations.SourceExplicit)
	if err != nil {
		panic(err)
	}
	if err := fk.SetUnique(true); err != nil {
		panic(err)
	}
}

// bagEntity adds a property bag entity type keyed by an int ID
func bagEntity(t *testing.T, m *schema.Model, name string) *schema.EntityType {
	t.Helper()
	et, err := m.AddSharedEntityType(name, nil, annotations.SourceExplicit)
	require.NoError(t, err)
	id, err := et.AddProperty("ID", intType, annotations.SourceExplicit)
	require.NoError(t, err)
	_, err = et.SetPrimaryKey([]*schema.Property{id}, annotations.SourceExplicit)
	require.NoError(t, err)
	return et
}

// identify makes the primary key of dependent a foreign key to principal
func identify(t *testing.T, dependent, principal *schema.EntityType) *schema.ForeignKey {
	t.Helper()
	fk, err := dependent.AddForeignKey(dependent.FindPrimaryKey().Properties(), principal.FindPrimaryKey(), principal, annotations.SourceExplicit)
	require.NoError(t, err)
	require.NoError(t, fk.SetUnique(true))
	explicit := annotations.SourceExplicit
	require.NoError(t, fk.SetPrincipalEndConfigurationSource(&explicit))
	return fk
}
