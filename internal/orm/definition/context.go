package definition

import (
	"github.com/conduit-lang/metamodel/internal/orm/modelcache"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// Context is a model context whose model comes from a Document
type Context struct {
	doc *Document
}

var _ schema.ModelCreator = (*Context)(nil)

// NewContext creates a context for doc
func NewContext(doc *Document) *Context {
	return &Context{doc: doc}
}

// Document returns the definition the context was created from
func (c *Context) Document() *Document {
	return c.doc
}

// OnModelCreating configures the entities of the document
func (c *Context) OnModelCreating(b *schema.ModelBuilder) {
	c.doc.Configure(b)
}

// Key identifies the model of a Context. Every document builds its own
// model, so the document digest is part of the key.
type Key struct {
	modelcache.Key
	Digest string
}

// KeyFactory keys Context models by document digest and everything else
// like modelcache.DefaultKeyFactory
type KeyFactory struct{}

var _ modelcache.KeyFactory = KeyFactory{}

// Create implements modelcache.KeyFactory
func (KeyFactory) Create(ctx any, designTime bool) any {
	base := modelcache.Key{ContextType: modelcache.ContextType(ctx), DesignTime: designTime}
	if c, ok := ctx.(*Context); ok && c.doc != nil {
		return Key{Key: base, Digest: c.doc.Digest()}
	}
	return base
}
