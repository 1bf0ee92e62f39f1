package state

import (
	"context"
	"sort"
	"strings"
	"sync"

	settings "github.com/goliatone/go-settings"
)

// MemoryProvider is a settings.Provider that keeps rows in memory, one map
// per site.
type MemoryProvider struct {
	mu    sync.RWMutex
	site  string
	sites map[string]map[string]settings.Row
}

// NewMemoryProvider returns an empty provider serving DefaultSite.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		site:  DefaultSite,
		sites: map[string]map[string]settings.Row{},
	}
}

// SetCurrentSite switches the site subsequent calls read and write.
func (p *MemoryProvider) SetCurrentSite(site string) {
	site = strings.TrimSpace(site)
	if site == "" {
		site = DefaultSite
	}
	p.mu.Lock()
	p.site = site
	p.mu.Unlock()
}

// CurrentSite implements settings.Provider.
func (p *MemoryProvider) CurrentSite() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.site
}

// Clear drops every row of every site.
func (p *MemoryProvider) Clear() {
	p.mu.Lock()
	p.sites = map[string]map[string]settings.Row{}
	p.mu.Unlock()
}

func (p *MemoryProvider) All(context.Context) ([]settings.Row, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedRows(p.sites[p.site]), nil
}

func (p *MemoryProvider) Find(_ context.Context, name string) (settings.Row, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	row, ok := p.sites[p.site][name]
	return row, ok, nil
}

func (p *MemoryProvider) Save(_ context.Context, name, value string, dataType settings.DataType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rows := p.sites[p.site]
	if rows == nil {
		rows = map[string]settings.Row{}
		p.sites[p.site] = rows
	}
	rows[name] = settings.Row{Name: name, Value: value, DataType: dataType}
	return nil
}

func (p *MemoryProvider) Destroy(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sites[p.site], name)
	return nil
}

// MemoryRowStore is an in-memory RowStore for tests and examples. The table
// starts out present; SetTableExists simulates a missing table.
type MemoryRowStore struct {
	mu      sync.RWMutex
	missing bool
	rows    map[string]settings.Row
}

func NewMemoryRowStore() *MemoryRowStore {
	return &MemoryRowStore{rows: map[string]settings.Row{}}
}

// SetTableExists toggles the simulated table.
func (s *MemoryRowStore) SetTableExists(exists bool) {
	s.mu.Lock()
	s.missing = !exists
	s.mu.Unlock()
}

func (s *MemoryRowStore) TableExists(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.missing, nil
}

func (s *MemoryRowStore) All(context.Context) ([]settings.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedRows(s.rows), nil
}

func (s *MemoryRowStore) Find(_ context.Context, name string) (settings.Row, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[name]
	return row, ok, nil
}

func (s *MemoryRowStore) Upsert(_ context.Context, row settings.Row) error {
	s.mu.Lock()
	s.rows[row.Name] = row
	s.mu.Unlock()
	return nil
}

func (s *MemoryRowStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.rows, name)
	s.mu.Unlock()
	return nil
}

func sortedRows(rows map[string]settings.Row) []settings.Row {
	out := make([]settings.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
