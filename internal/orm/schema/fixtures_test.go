package schema

import (
	"reflect"

	"github.com/google/uuid"
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
	Tags   []string
}

type Person struct {
	ID   int
	Name string
}

type Employee struct {
	Person
	Salary float64
}

type Customer struct {
	ID      uuid.UUID
	Name    string
	Address Address
}

type Address struct {
	Street string
	City   string
}

type Profile struct {
	ID  int
	Bio string
}

type User struct {
	ID      int
	Email   string
	Profile *Profile
}

type Tag struct {
	ID    int
	Label string
}

type Account struct {
	id      int
	balance int64
	Owner   string
}

func (a *Account) ID() int { return a.id }

func (a *Account) SetID(v int) { a.id = v }

func (a *Account) GetBalance() int64 { return a.balance }

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type Student struct {
	ID      int
	Courses []*Course
}

type Course struct {
	ID       int
	Students []*Student
}
