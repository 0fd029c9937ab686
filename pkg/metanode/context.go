package metanode

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/riglab/metanode/pkg/types"
)

// BaseKind is the kind tag every Context starts with. Registered kinds
// chain back to it through their parent tags.
const BaseKind = "MetaNode"

// Kind is a concrete metanode kind: a wrapper around *Node that declares
// its own fields and runs one-time initialization. Implementations embed
// Base and override what they need.
type Kind interface {
	// MetaNode returns the underlying persistent node.
	MetaNode() *Node

	// DeclareFields adds the kind's own fields during bootstrap, after the
	// reserved and persisted fields are in place. Declarations of
	// already-present names are left as-is.
	DeclareFields() error

	// Initialize runs exactly once per entity across all process
	// lifetimes, guarded by the persisted init flag.
	Initialize() error
}

// Constructor builds a Kind instance around a freshly resolved node.
type Constructor func(n *Node) Kind

// Base is the default Kind: no extra fields, no initialization. Concrete
// kinds embed it and override DeclareFields or Initialize.
type Base struct {
	*Node
}

// MetaNode returns the underlying persistent node.
func (b *Base) MetaNode() *Node { return b.Node }

// DeclareFields declares nothing.
func (b *Base) DeclareFields() error { return nil }

// Initialize does nothing.
func (b *Base) Initialize() error { return nil }

// kindEntry ties a tag to its constructor and its parent in the kind
// hierarchy.
type kindEntry struct {
	tag    string
	parent string
	ctor   Constructor
}

// Context owns everything process-wide: the attribute store, the identity
// cache guaranteeing one live wrapper per entity, the kind registry used
// for polymorphic resolution, and the validator registry. It replaces a
// hidden global; callers create one per store and pass it around.
//
// The cache has no automatic eviction: entries outlive their backing
// entities unless Evict is called when an entity is deleted.
type Context struct {
	store  types.Store
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]Kind

	kinds      map[string]kindEntry
	validators map[string]Validator

	nativeKind string
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for write-skip and soft-failure entries.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNativeKind sets the native entity kind Create uses when the caller
// passes none.
func WithNativeKind(kind string) Option {
	return func(c *Context) {
		if kind != "" {
			c.nativeKind = kind
		}
	}
}

// NewContext builds a Context over the given store, with the built-in
// validators and the base kind registered.
func NewContext(store types.Store, opts ...Option) *Context {
	c := &Context{
		store:      store,
		logger:     slog.Default(),
		cache:      make(map[string]Kind),
		kinds:      make(map[string]kindEntry),
		validators: make(map[string]Validator),
		nativeKind: "node",
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, v := range []Validator{
		intValidator{},
		floatValidator{},
		boolValidator{},
		stringValidator{},
		matrixValidator{},
		enumValidator{},
		nodeValidator{ctx: c},
		jsonValidator{},
	} {
		c.validators[v.Kind()] = v
	}

	c.kinds[BaseKind] = kindEntry{
		tag:  BaseKind,
		ctor: func(n *Node) Kind { return &Base{Node: n} },
	}
	return c
}

// Store returns the attribute store this context persists into.
func (c *Context) Store() types.Store { return c.store }

// RegisterKind registers a constructor under a kind tag, chained to a
// parent tag. The parent must already be registered; use BaseKind for
// top-level kinds. Duplicate tags are rejected.
func (c *Context) RegisterKind(tag, parent string, ctor Constructor) error {
	if tag == "" || ctor == nil {
		return fmt.Errorf("register kind: %w: empty tag or nil constructor", types.ErrConfiguration)
	}
	if _, ok := c.kinds[tag]; ok {
		return fmt.Errorf("register kind %q: %w: already registered", tag, types.ErrConfiguration)
	}
	if _, ok := c.kinds[parent]; !ok {
		return fmt.Errorf("register kind %q: %w: unknown parent %q", tag, types.ErrConfiguration, parent)
	}
	c.kinds[tag] = kindEntry{tag: tag, parent: parent, ctor: ctor}
	return nil
}

// RegisterValidator registers a custom value codec. Duplicate kinds are
// rejected.
func (c *Context) RegisterValidator(v Validator) error {
	if v == nil || v.Kind() == "" {
		return fmt.Errorf("register validator: %w", types.ErrConfiguration)
	}
	if _, ok := c.validators[v.Kind()]; ok {
		return fmt.Errorf("register validator %q: %w: already registered", v.Kind(), types.ErrConfiguration)
	}
	c.validators[v.Kind()] = v
	return nil
}

// Wrap returns the wrapper for an existing entity, resolving the concrete
// kind from the stored tag rooted at BaseKind. A second Wrap of the same id
// returns the same instance unchanged; callers must not assume freshness.
func (c *Context) Wrap(id string) (Kind, error) {
	return c.WrapAs(id, BaseKind)
}

// WrapName is Wrap by display name.
func (c *Context) WrapName(name string) (Kind, error) {
	id, err := c.store.Resolve(name)
	if err != nil {
		return nil, err
	}
	return c.Wrap(id)
}

// WrapAs wraps an existing entity, resolving the stored kind tag against
// the kinds transitively reachable from baseTag. An entity without a stored
// tag resolves to baseTag itself. A non-empty stored tag that resolves to
// nothing fails with types.ErrSchemaResolution.
func (c *Context) WrapAs(id, baseTag string) (Kind, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%q: %w", id, types.ErrConstruction)
	}
	if k, ok := c.Cached(id); ok {
		return k, nil
	}
	if !c.store.EntityExists(id) {
		return nil, fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
	}

	tag, err := c.storedKindTag(id, baseTag)
	if err != nil {
		return nil, err
	}
	entry, err := c.resolveKind(tag, baseTag)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", id, err)
	}

	n := &Node{
		ctx:     c,
		id:      id,
		kindTag: entry.tag,
		fields:  make(map[string]Field),
	}
	k := entry.ctor(n)
	if k == nil || k.MetaNode() != n {
		return nil, fmt.Errorf("kind %q: %w: constructor did not wrap the node", entry.tag, types.ErrConfiguration)
	}

	// Register before bootstrap so reference fields resolving back to this
	// entity find the instance instead of recursing forever.
	c.remember(id, k)

	if err := c.bootstrap(n, k); err != nil {
		c.Evict(id)
		return nil, err
	}
	return k, nil
}

// Create allocates a new backing entity of the given native kind and wraps
// it as the requested metanode kind.
func (c *Context) Create(tag, native string, opts types.CreateOptions) (Kind, error) {
	if _, ok := c.kinds[tag]; !ok {
		return nil, fmt.Errorf("kind %q: %w", tag, types.ErrSchemaResolution)
	}
	if native == "" {
		native = c.nativeKind
	}
	id, err := c.store.CreateEntity(native, opts)
	if err != nil {
		return nil, err
	}
	return c.WrapAs(id, tag)
}

// Cached returns the live wrapper for an id, if any.
func (c *Context) Cached(id string) (Kind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.cache[id]
	return k, ok
}

// Evict drops an entity from the identity cache. Call it when the backing
// entity is deleted, or a later Wrap keeps handing out a stale wrapper.
func (c *Context) Evict(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, id)
}

func (c *Context) remember(id string, k Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[id] = k
}

// storedKindTag reads the persisted kind tag, falling back to the requested
// base tag on entities never wrapped before.
func (c *Context) storedKindTag(id, baseTag string) (string, error) {
	exists, err := c.store.AttributeExists(id, KindTagField)
	if err != nil {
		return "", err
	}
	if !exists {
		return baseTag, nil
	}
	raw, err := c.store.GetAttribute(id, KindTagField)
	if err != nil {
		return "", err
	}
	if s, ok := raw.(string); ok && s != "" {
		return s, nil
	}
	return baseTag, nil
}

// resolveKind looks the tag up and checks it is reachable from baseTag by
// exact name match along the parent chain.
func (c *Context) resolveKind(tag, baseTag string) (kindEntry, error) {
	entry, ok := c.kinds[tag]
	if !ok {
		return kindEntry{}, fmt.Errorf("tag %q: %w", tag, types.ErrSchemaResolution)
	}
	for cur := tag; ; {
		if cur == baseTag {
			return entry, nil
		}
		e, ok := c.kinds[cur]
		if !ok || e.parent == "" {
			return kindEntry{}, fmt.Errorf("tag %q not reachable from %q: %w", tag, baseTag, types.ErrSchemaResolution)
		}
		cur = e.parent
	}
}

// bootstrap declares the reserved fields, re-declares persisted custom
// fields, lets the concrete kind declare its extras, and finally runs
// one-time initialization guarded by the persisted flag.
//
// Each field is primed from the store at declaration, so there is no bulk
// read here: re-reading a slot created moments ago would clobber a declared
// default with the store's zero value.
func (c *Context) bootstrap(n *Node, k Kind) error {
	if err := n.declareReservedFields(); err != nil {
		return fmt.Errorf("entity %s: %w", n.id, err)
	}
	if err := k.DeclareFields(); err != nil {
		return fmt.Errorf("entity %s: declare fields: %w", n.id, err)
	}
	return c.runInitialize(n, k)
}

// runInitialize runs Kind.Initialize exactly once per entity across all
// process lifetimes. The flag is written through immediately so the guard
// survives a process that never flushes.
func (c *Context) runInitialize(n *Node, k Kind) error {
	f := n.fields[InitField]
	v, err := f.Get()
	if err != nil {
		return err
	}
	if done, _ := v.(bool); done {
		return nil
	}
	if err := k.Initialize(); err != nil {
		return fmt.Errorf("entity %s: initialize: %w", n.id, err)
	}
	if err := f.Set(true); err != nil {
		return err
	}
	return f.Write()
}
