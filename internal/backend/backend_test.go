package backend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

type fakeContext struct {
	closed bool
	name   string
	// inUse and calls are flipped/incremented by fakeListFolders around
	// each call so tests can catch two goroutines driving the same
	// context at once, or check how many times each context was used.
	inUse int32
	calls int32
}

func (c *fakeContext) Close() error {
	c.closed = true
	return nil
}

type fakeListFolders struct {
	folders []model.Folder
	ctx     *fakeContext
}

func (f *fakeListFolders) ListFolders(ctx context.Context) ([]model.Folder, error) {
	if f.ctx != nil {
		atomic.AddInt32(&f.ctx.calls, 1)
		if !atomic.CompareAndSwapInt32(&f.ctx.inUse, 0, 1) {
			return nil, fmt.Errorf("context %s driven by two callers at once", f.ctx.name)
		}
		defer atomic.StoreInt32(&f.ctx.inUse, 0)
		time.Sleep(time.Millisecond)
	}
	return f.folders, nil
}

type fakeBuilder struct {
	built   int
	folders []model.Folder
}

func (b *fakeBuilder) Clone() ContextBuilder { return &fakeBuilder{folders: b.folders} }

func (b *fakeBuilder) Build(ctx context.Context) (Context, error) {
	b.built++
	return &fakeContext{name: fmt.Sprintf("ctx%d", b.built)}, nil
}

func (b *fakeBuilder) Feature(name FeatureName) FeatureFactory {
	if name != FeatureListFolders {
		return nil
	}
	return func(c Context) (any, bool) {
		fc, ok := c.(*fakeContext)
		if !ok {
			return nil, false
		}
		return &fakeListFolders{folders: b.folders, ctx: fc}, true
	}
}

func TestHandlerDispatch(t *testing.T) {
	folders := []model.Folder{{Name: "INBOX"}}
	b := NewBuilder(model.AccountConfig{Name: "work"}, &fakeBuilder{folders: folders})

	h, err := b.BuildHandler(context.Background())
	if err != nil {
		t.Fatalf("BuildHandler() error = %v", err)
	}
	defer h.Close()

	var got []model.Folder
	err = h.Call(FeatureListFolders, func(impl any) error {
		lf := impl.(ListFolders)
		var err error
		got, err = lf.ListFolders(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "INBOX" {
		t.Errorf("got = %+v, want one INBOX folder", got)
	}
}

func TestHandlerFeatureUnavailable(t *testing.T) {
	b := NewBuilder(model.AccountConfig{}, &fakeBuilder{})
	h, err := b.BuildHandler(context.Background())
	if err != nil {
		t.Fatalf("BuildHandler() error = %v", err)
	}
	defer h.Close()

	err = h.Call(FeatureAddFolder, func(any) error { return nil })
	if !mailerr.Is(err, mailerr.KindCapabilityMissing) {
		t.Errorf("Call() error = %v, want KindCapabilityMissing", err)
	}
}

func TestSourceNoneDisablesFeature(t *testing.T) {
	b := NewBuilder(model.AccountConfig{}, &fakeBuilder{folders: []model.Folder{{Name: "INBOX"}}})
	b.WithFeature(FeatureListFolders, None())

	h, err := b.BuildHandler(context.Background())
	if err != nil {
		t.Fatalf("BuildHandler() error = %v", err)
	}
	defer h.Close()

	err = h.Call(FeatureListFolders, func(any) error { return nil })
	if !mailerr.Is(err, mailerr.KindCapabilityMissing) {
		t.Errorf("Call() error = %v, want KindCapabilityMissing after None()", err)
	}
}

func TestPoolCallRoundRobin(t *testing.T) {
	fb := &fakeBuilder{folders: []model.Folder{{Name: "INBOX"}}}
	b := NewBuilder(model.AccountConfig{}, fb)

	p, err := b.BuildPool(context.Background(), 3)
	if err != nil {
		t.Fatalf("BuildPool() error = %v", err)
	}
	defer p.Close()

	if len(p.contexts) != 3 {
		t.Fatalf("pool size = %d, want 3", len(p.contexts))
	}

	for i := 0; i < 3; i++ {
		err := p.Call(FeatureListFolders, func(impl any) error {
			_, err := impl.(ListFolders).ListFolders(context.Background())
			return err
		})
		if err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}

	for _, c := range p.contexts {
		fc := c.(*fakeContext)
		if fc.calls != 1 {
			t.Errorf("context %s handled %d calls, want exactly 1 (round robin should visit each slot once)", fc.name, fc.calls)
		}
	}
}

// TestPoolCallIsExclusivePerContext drives far more concurrent callers
// than pooled contexts at a pool smaller than the worker count sync's
// errgroup pool uses, the scenario where free-running round robin could
// hand the same live context to two goroutines at once. fakeListFolders
// fails any call that finds its context already in use.
func TestPoolCallIsExclusivePerContext(t *testing.T) {
	fb := &fakeBuilder{folders: []model.Folder{{Name: "INBOX"}}}
	b := NewBuilder(model.AccountConfig{}, fb)

	p, err := b.BuildPool(context.Background(), 2)
	if err != nil {
		t.Fatalf("BuildPool() error = %v", err)
	}
	defer p.Close()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Call(FeatureListFolders, func(impl any) error {
				_, err := impl.(ListFolders).ListFolders(context.Background())
				return err
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Call() error = %v", err)
	}
}

func TestPoolClose(t *testing.T) {
	fb := &fakeBuilder{}
	b := NewBuilder(model.AccountConfig{}, fb)
	p, err := b.BuildPool(context.Background(), 2)
	if err != nil {
		t.Fatalf("BuildPool() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for _, c := range p.contexts {
		if !c.(*fakeContext).closed {
			t.Error("pooled context not closed")
		}
	}
}

func TestMapFeatureFrom(t *testing.T) {
	sub := &fakeBuilder{folders: []model.Folder{{Name: "Sub"}}}

	getSub := func(c Context) (Context, bool) {
		composite, ok := c.(*compositeFake)
		if !ok || composite.sub == nil {
			return nil, false
		}
		return composite.sub, true
	}

	factory := MapFeatureFrom(sub, FeatureListFolders, getSub)
	if factory == nil {
		t.Fatal("MapFeatureFrom returned nil factory")
	}

	withSub := &compositeFake{sub: &fakeContext{name: "sub"}}
	impl, ok := factory(withSub)
	if !ok {
		t.Fatal("expected factory to succeed when subcontext present")
	}
	if _, ok := impl.(ListFolders); !ok {
		t.Errorf("impl = %T, want ListFolders", impl)
	}

	withoutSub := &compositeFake{}
	if _, ok := factory(withoutSub); ok {
		t.Error("expected factory to fail when subcontext absent")
	}
}

type compositeFake struct {
	sub Context
}

func (c *compositeFake) Close() error { return nil }
