// Package backend implements a capability layer: a context, a context
// builder, and a backend composed of per-verb features. Concrete
// contexts live in internal/backend/{imap,maildir,
// notmuch,smtp}; this package holds the feature vocabulary, the builder
// that wires sources to features, and the handler/pool backend shapes.
package backend

import (
	"context"
	"sync"

	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

// Context is a marker every concrete backend context implements. Building
// one may open a connection or a filesystem handle; Close releases it.
type Context interface {
	Close() error
}

// FeatureFactory takes a context and returns a feature implementation, or
// false if that context doesn't support it. Factories never hold a lock
// across the call; any suspension happens inside the returned feature's
// own methods.
type FeatureFactory func(Context) (any, bool)

// ContextBuilder is cloneable and exposes one factory per feature,
// defaulting to "derive from this context" when Feature returns nil.
// Composite builders forward each factory to the matching sub-builder.
type ContextBuilder interface {
	Clone() ContextBuilder
	Build(ctx context.Context) (Context, error)
	Feature(name FeatureName) FeatureFactory
}

// SourceKind selects where a backend builder pulls a feature factory from.
type SourceKind int

const (
	// SourceNone disables the feature regardless of what the context offers.
	SourceNone SourceKind = iota
	// SourceContext uses the context builder's own factory for this feature.
	SourceContext
	// SourceBackend overrides the context builder with a custom factory.
	SourceBackend
)

// FeatureSource is one entry of a backend builder's per-feature source map.
type FeatureSource struct {
	Kind    SourceKind
	Factory FeatureFactory // only meaningful when Kind == SourceBackend
}

// None disables a feature.
func None() FeatureSource { return FeatureSource{Kind: SourceNone} }

// FromContext derives a feature from the context builder (the default).
func FromContext() FeatureSource { return FeatureSource{Kind: SourceContext} }

// FromBackend overrides a feature with a custom factory.
func FromBackend(f FeatureFactory) FeatureSource {
	return FeatureSource{Kind: SourceBackend, Factory: f}
}

// Builder pairs a context builder with per-feature sources. All
// features default to SourceContext.
type Builder struct {
	ctxBuilder ContextBuilder
	account    model.AccountConfig
	sources    map[FeatureName]FeatureSource
}

// NewBuilder creates a backend builder over ctxBuilder for account.
func NewBuilder(account model.AccountConfig, ctxBuilder ContextBuilder) *Builder {
	return &Builder{
		account:    account,
		ctxBuilder: ctxBuilder,
		sources:    make(map[FeatureName]FeatureSource),
	}
}

// WithFeature sets the source for a single feature and returns the builder
// for chaining.
func (b *Builder) WithFeature(name FeatureName, src FeatureSource) *Builder {
	b.sources[name] = src
	return b
}

// WithoutFeatures disables the named features, overriding whatever the
// builder would otherwise derive from the context for them. Features not
// named are left unchanged.
func (b *Builder) WithoutFeatures(names ...FeatureName) *Builder {
	for _, n := range names {
		b.sources[n] = None()
	}
	return b
}

func (b *Builder) resolve(name FeatureName) FeatureFactory {
	src, ok := b.sources[name]
	if !ok {
		src = FromContext()
	}
	switch src.Kind {
	case SourceNone:
		return nil
	case SourceBackend:
		return src.Factory
	default:
		return b.ctxBuilder.Feature(name)
	}
}

func (b *Builder) resolveAll() map[FeatureName]FeatureFactory {
	resolved := make(map[FeatureName]FeatureFactory, len(allFeatures))
	for _, name := range allFeatures {
		if f := b.resolve(name); f != nil {
			resolved[name] = f
		}
	}
	return resolved
}

var allFeatures = []FeatureName{
	FeatureListFolders, FeatureAddFolder, FeatureDeleteFolder, FeatureExpungeFolder,
	FeatureGetEnvelope, FeatureListEnvelopes, FeatureThreadEnvelopes, FeatureWatchEnvelopes,
	FeatureAddFlags, FeatureSetFlags, FeatureRemoveFlags,
	FeatureAddMessage, FeaturePeekMessages, FeatureGetMessages,
	FeatureCopyMessages, FeatureMoveMessages, FeatureDeleteMessages, FeatureRemoveMessages,
	FeatureSendMessage, FeatureCheckUp,
}

// BuildHandler produces a single-instance backend serialized behind an
// exclusive lock, the shape used for filesystem-backed contexts where pool
// size is irrelevant.
func (b *Builder) BuildHandler(ctx context.Context) (*Handler, error) {
	built, err := b.ctxBuilder.Build(ctx)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindTransport, "build backend context", err)
	}
	return &Handler{
		account:  b.account,
		context:  built,
		features: b.resolveAll(),
	}, nil
}

// BuildPool produces a pool of size pre-built contexts, each guarded by
// its own exclusive slot, the shape used for protocols whose context
// holds a live connection.
func (b *Builder) BuildPool(ctx context.Context, size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	contexts := make([]Context, 0, size)
	for i := 0; i < size; i++ {
		built, err := b.ctxBuilder.Clone().Build(ctx)
		if err != nil {
			for _, c := range contexts {
				_ = c.Close()
			}
			return nil, mailerr.Wrap(mailerr.KindTransport, "build pooled backend context", err)
		}
		contexts = append(contexts, built)
	}
	slots := make(chan int, len(contexts))
	for i := range contexts {
		slots <- i
	}
	return &Pool{
		account:  b.account,
		contexts: contexts,
		slots:    slots,
		features: b.resolveAll(),
	}, nil
}

// Handler is a single-instance backend: every feature call acquires an
// exclusive lock around the shared context.
type Handler struct {
	account  model.AccountConfig
	mu       sync.Mutex
	context  Context
	features map[FeatureName]FeatureFactory
}

// Close releases the underlying context.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.context.Close()
}

// Call dispatches feature name against the handler's context under its
// exclusive lock.1's "Dispatch": FeatureUnavailable if the
// feature was never wired, invoke if it was.
func (h *Handler) Call(name FeatureName, fn func(any) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	factory, ok := h.features[name]
	if !ok {
		return mailerr.FeatureUnavailable(string(name))
	}
	impl, ok := factory(h.context)
	if !ok {
		return mailerr.FeatureUnavailable(string(name))
	}
	return fn(impl)
}

// Pool is a backend over N pre-built contexts, each owned by exactly one
// caller at a time: slots is a semaphore of the contexts' indices, so
// acquiring a slot and acquiring exclusive access to its context are the
// same operation. A caller that arrives when every slot is checked out
// blocks on the channel receive until one is released, the same
// loop-until-available behavior a try-lock loop gives, without spinning.
type Pool struct {
	account  model.AccountConfig
	mu       sync.Mutex
	contexts []Context
	slots    chan int
	features map[FeatureName]FeatureFactory
}

// Close releases every pooled context. It does not wait for checked-out
// slots to return; callers must ensure no Call is in flight first.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, c := range p.contexts {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Call blocks until a pooled context's slot is free, then dispatches name
// against it exclusively: no other Call can touch that same context
// until this one returns and releases the slot.
func (p *Pool) Call(name FeatureName, fn func(any) error) error {
	factory, ok := p.features[name]
	if !ok {
		return mailerr.FeatureUnavailable(string(name))
	}
	idx := <-p.slots
	defer func() { p.slots <- idx }()

	impl, ok := factory(p.contexts[idx])
	if !ok {
		return mailerr.FeatureUnavailable(string(name))
	}
	return fn(impl)
}

// MapFeatureFrom builds a feature factory on a composite context by
// invoking subBuilder's factory on the matching subcontext, or returning
// false when that subcontext is absent. getSub extracts the subcontext
// from the composite; if it returns false, the composite doesn't carry
// that subcontext at all.
func MapFeatureFrom[S Context](subBuilder ContextBuilder, name FeatureName, getSub func(Context) (S, bool)) FeatureFactory {
	subFactory := subBuilder.Feature(name)
	if subFactory == nil {
		return nil
	}
	return func(c Context) (any, bool) {
		sub, ok := getSub(c)
		if !ok {
			return nil, false
		}
		return subFactory(sub)
	}
}
