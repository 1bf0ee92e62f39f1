package settings

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errStoreDown = errors.New("store down")

// fakeProvider keeps rows in memory and can be told to fail.
type fakeProvider struct {
	mu       sync.Mutex
	site     string
	rows     map[string]Row
	saves    int
	destroys int
	failAll  bool
	failSave bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{site: "default", rows: map[string]Row{}}
}

func (p *fakeProvider) All(context.Context) ([]Row, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return nil, errStoreDown
	}
	out := make([]Row, 0, len(p.rows))
	for _, row := range p.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *fakeProvider) Find(_ context.Context, name string) (Row, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return Row{}, false, errStoreDown
	}
	row, ok := p.rows[name]
	return row, ok, nil
}

func (p *fakeProvider) Save(_ context.Context, name, value string, dataType DataType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSave {
		return errStoreDown
	}
	p.saves++
	p.rows[name] = Row{Name: name, Value: value, DataType: dataType}
	return nil
}

func (p *fakeProvider) Destroy(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroys++
	delete(p.rows, name)
	return nil
}

func (p *fakeProvider) CurrentSite() string { return p.site }

func (p *fakeProvider) put(name, value string, dataType DataType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows[name] = Row{Name: name, Value: value, DataType: dataType}
}

func (p *fakeProvider) row(name string) (Row, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := p.rows[name]
	return row, ok
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
