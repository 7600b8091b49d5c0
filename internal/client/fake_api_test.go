package client

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/imrishuroy/go-shoplist/internal/items"
)

type Call interface{}

// FakeAPI hands every call to the test over Calls and blocks until the test
// answers, so tests script the server one round-trip at a time.
type FakeAPI struct {
	t     *testing.T
	Calls chan Call
}

func NewFakeAPI(t *testing.T) *FakeAPI {
	return &FakeAPI{t, make(chan Call)}
}

type listCall struct{ filter items.Filter }
type createCall struct{ in items.NewItem }
type updateCall struct {
	id    int64
	patch items.Patch
}
type toggleCall struct{ id int64 }
type deleteCall struct{ id int64 }

type itemsResp struct {
	list []items.Item
	err  error
}
type itemResp struct {
	item items.Item
	err  error
}
type errResp struct{ err error }

func (f *FakeAPI) List(ctx context.Context, filter items.Filter) ([]items.Item, error) {
	f.Calls <- &listCall{filter}
	resp := (<-f.Calls).(*itemsResp)
	return resp.list, resp.err
}

func (f *FakeAPI) Get(ctx context.Context, id int64) (items.Item, error) {
	f.t.Fatalf("unexpected Get(%d)", id)
	return items.Item{}, nil
}

func (f *FakeAPI) Create(ctx context.Context, in items.NewItem) (items.Item, error) {
	f.Calls <- &createCall{in}
	resp := (<-f.Calls).(*itemResp)
	return resp.item, resp.err
}

func (f *FakeAPI) Update(ctx context.Context, id int64, p items.Patch) (items.Item, error) {
	f.Calls <- &updateCall{id, p}
	resp := (<-f.Calls).(*itemResp)
	return resp.item, resp.err
}

func (f *FakeAPI) Toggle(ctx context.Context, id int64) (items.Item, error) {
	f.Calls <- &toggleCall{id}
	resp := (<-f.Calls).(*itemResp)
	return resp.item, resp.err
}

func (f *FakeAPI) Delete(ctx context.Context, id int64) error {
	f.Calls <- &deleteCall{id}
	return (<-f.Calls).(*errResp).err
}

func (f *FakeAPI) Stats(ctx context.Context) (items.Stats, error) {
	f.t.Fatalf("unexpected Stats()")
	return items.Stats{}, nil
}

func (f *FakeAPI) Close() {
	close(f.Calls)
}

func (f *FakeAPI) AssertList(filter items.Filter, list []items.Item, err error) {
	call := (<-f.Calls).(*listCall)
	if diff := cmp.Diff(filter, call.filter); diff != "" {
		f.t.Errorf("list filter mismatch (-want +got):\n%s", diff)
	}
	f.Calls <- &itemsResp{list, err}
}

func (f *FakeAPI) AssertCreate(in items.NewItem, it items.Item, err error) {
	call := (<-f.Calls).(*createCall)
	if diff := cmp.Diff(in, call.in); diff != "" {
		f.t.Errorf("create payload mismatch (-want +got):\n%s", diff)
	}
	f.Calls <- &itemResp{it, err}
}

func (f *FakeAPI) AssertUpdate(id int64, p items.Patch, it items.Item, err error) {
	call := (<-f.Calls).(*updateCall)
	if call.id != id {
		f.t.Errorf("expected update of %d but was %d", id, call.id)
	}
	if diff := cmp.Diff(p, call.patch); diff != "" {
		f.t.Errorf("patch mismatch (-want +got):\n%s", diff)
	}
	f.Calls <- &itemResp{it, err}
}

func (f *FakeAPI) AssertToggle(id int64, it items.Item, err error) {
	call := (<-f.Calls).(*toggleCall)
	if call.id != id {
		f.t.Errorf("expected toggle of %d but was %d", id, call.id)
	}
	f.Calls <- &itemResp{it, err}
}

func (f *FakeAPI) AssertDelete(id int64, err error) {
	call := (<-f.Calls).(*deleteCall)
	if call.id != id {
		f.t.Errorf("expected delete of %d but was %d", id, call.id)
	}
	f.Calls <- &errResp{err}
}

func (f *FakeAPI) AssertDone(t *testing.T) {
	if _, more := <-f.Calls; more {
		t.Fatal("Did not expect more calls")
	}
}
