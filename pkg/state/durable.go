package state

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	settings "github.com/goliatone/go-settings"
)

// DurableOption configures a DurableProvider.
type DurableOption func(*DurableProvider)

// WithSite sets the site reported by CurrentSite and stamped on changes.
func WithSite(site string) DurableOption {
	return func(p *DurableProvider) {
		if site = strings.TrimSpace(site); site != "" {
			p.site = site
		}
	}
}

// WithNotifier sets the notifier invoked after every successful write.
func WithNotifier(n Notifier) DurableOption {
	return func(p *DurableProvider) {
		p.notifier = n
	}
}

// WithLogger routes storage events to logger.
func WithLogger(logger settings.Logger) DurableOption {
	return func(p *DurableProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// DurableProvider is a settings.Provider backed by a RowStore. Until the
// table exists it reads as empty and drops writes; the first positive probe
// is cached for the provider's lifetime.
type DurableProvider struct {
	store    RowStore
	site     string
	notifier Notifier
	logger   settings.Logger

	mu    sync.Mutex
	ready bool
}

// NewDurableProvider wraps store.
func NewDurableProvider(store RowStore, opts ...DurableOption) *DurableProvider {
	p := &DurableProvider{
		store:  store,
		site:   DefaultSite,
		logger: settings.LoggerFunc(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// CurrentSite implements settings.Provider.
func (p *DurableProvider) CurrentSite() string { return p.site }

// Available probes the backing table. A failed probe is reported as
// settings.ErrStorageUnavailable.
func (p *DurableProvider) Available(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	exists, err := p.store.TableExists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", settings.ErrStorageUnavailable, err)
	}
	if !exists {
		return settings.ErrStorageUnavailable
	}
	p.ready = true
	return nil
}

func (p *DurableProvider) available(ctx context.Context, op, name string) bool {
	if err := p.Available(ctx); err != nil {
		p.logger.Log(settings.LogEvent{Op: op, Setting: name, Site: p.site, Message: "settings storage unavailable", Err: err})
		return false
	}
	return true
}

func (p *DurableProvider) All(ctx context.Context) ([]settings.Row, error) {
	if !p.available(ctx, "store.all", "") {
		return nil, nil
	}
	rows, err := p.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("state: load %q: %w", p.site, err)
	}
	return rows, nil
}

func (p *DurableProvider) Find(ctx context.Context, name string) (settings.Row, bool, error) {
	if !p.available(ctx, "store.find", name) {
		return settings.Row{}, false, nil
	}
	row, ok, err := p.store.Find(ctx, name)
	if err != nil {
		return settings.Row{}, false, fmt.Errorf("state: find %q: %w", name, err)
	}
	return row, ok, nil
}

func (p *DurableProvider) Save(ctx context.Context, name, value string, dataType settings.DataType) error {
	if !p.available(ctx, "store.save", name) {
		return nil
	}
	start := time.Now()
	row := settings.Row{Name: name, Value: value, DataType: dataType}
	if err := p.store.Upsert(ctx, row); err != nil {
		return fmt.Errorf("state: save %q: %w", name, err)
	}
	p.logger.Log(settings.LogEvent{Op: "store.save", Setting: name, Site: p.site, Duration: time.Since(start)})
	p.notify(ctx, Change{Site: p.site, Name: name, Value: value, DataType: dataType})
	return nil
}

func (p *DurableProvider) Destroy(ctx context.Context, name string) error {
	if !p.available(ctx, "store.destroy", name) {
		return nil
	}
	if err := p.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("state: destroy %q: %w", name, err)
	}
	p.notify(ctx, Change{Site: p.site, Name: name, Deleted: true})
	return nil
}

// notify never fails the write; the row is already persisted.
func (p *DurableProvider) notify(ctx context.Context, change Change) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, change); err != nil {
		p.logger.Log(settings.LogEvent{Op: "store.notify", Setting: change.Name, Site: change.Site, Err: err})
	}
}
