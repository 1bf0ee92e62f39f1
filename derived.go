package settings

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-settings/pkg/depgraph"
)

// DeriveFunc computes a derived setting from the values it depends on. It
// must not call back into the Engine.
type DeriveFunc func(read Reader) (any, error)

type derivedSetting struct {
	name        string
	category    string
	description string
	dependsOn   []string
	compute     DeriveFunc
	expr        string
}

// RegisterDerived adds a read-only setting recomputed whenever one of
// dependsOn changes. A dependency cycle is rejected and leaves the engine
// unchanged.
func (e *Engine) RegisterDerived(name, category string, dependsOn []string, fn DeriveFunc) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ConfigurationError{Reason: "derived setting name is required"}
	}
	if fn == nil {
		return &ConfigurationError{Setting: name, Reason: "derive function is required"}
	}
	return e.addDerived(&derivedSetting{
		name:      name,
		category:  category,
		dependsOn: append([]string(nil), dependsOn...),
		compute:   fn,
	})
}

// RegisterExpression adds a derived setting computed by expr. Every setting
// is bound by name when the expression runs.
func (e *Engine) RegisterExpression(name, category string, dependsOn []string, expr string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ConfigurationError{Reason: "derived setting name is required"}
	}
	if e.evaluator == nil {
		return ErrNoEvaluator
	}
	compiled, err := e.evaluator.Compile(expr)
	if err != nil {
		return &ConfigurationError{Setting: name, Reason: "compile expression", Err: err}
	}
	d := &derivedSetting{
		name:        name,
		category:    category,
		description: expr,
		dependsOn:   append([]string(nil), dependsOn...),
		expr:        expr,
	}
	d.compute = func(read Reader) (any, error) {
		settings, _ := read.(snapshotReader)
		ctx := RuleContext{Setting: name, Settings: map[string]any(settings)}.withDefaults()
		return e.runCompiled(compiled, ctx, expr)
	}
	return e.addDerived(d)
}

func (e *Engine) addDerived(d *derivedSetting) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.defs[d.name]; ok {
		return &ConfigurationError{Setting: d.name, Reason: "already registered as a stored setting"}
	}
	for _, dep := range d.dependsOn {
		if _, ok := e.current[dep]; !ok && dep != d.name {
			return &ConfigurationError{Setting: d.name, Reason: fmt.Sprintf("unknown dependency %q", dep)}
		}
	}

	previous, existed := e.derived[d.name]
	e.derived[d.name] = d
	if _, err := e.graphLocked().Order(); err != nil {
		if existed {
			e.derived[d.name] = previous
		} else {
			delete(e.derived, d.name)
		}
		return &ConfigurationError{Setting: d.name, Reason: "dependency cycle", Err: err}
	}
	if !existed {
		e.order = append(e.order, d.name)
	}
	if err := e.computeLocked(d); err != nil {
		e.log(LogEvent{Op: "derive", Setting: d.name, Err: err})
	}
	return nil
}

func (e *Engine) graphLocked() *depgraph.Graph {
	edges := make(map[string][]string, len(e.derived))
	for name, d := range e.derived {
		edges[name] = d.dependsOn
	}
	return depgraph.New(edges)
}

func (e *Engine) computeLocked(d *derivedSetting) error {
	value, err := d.compute(snapshotReader(e.current))
	if err != nil {
		return fmt.Errorf("settings: derive %q: %w", d.name, err)
	}
	e.current[d.name] = value
	return nil
}

// refreshDependentsLocked recomputes the derived settings reachable from
// name. A failed computation keeps the previous value.
func (e *Engine) refreshDependentsLocked(name string) error {
	if len(e.derived) == 0 {
		return nil
	}
	dependents, err := e.graphLocked().Dependents(name)
	if err != nil {
		return err
	}
	var result *multierror.Error
	for _, dep := range dependents {
		d, ok := e.derived[dep]
		if !ok {
			continue
		}
		if err := e.computeLocked(d); err != nil {
			e.log(LogEvent{Op: "derive", Setting: dep, Err: err})
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (e *Engine) recomputeDerivedLocked() error {
	if len(e.derived) == 0 {
		return nil
	}
	order, err := e.graphLocked().Order()
	if err != nil {
		return err
	}
	var result *multierror.Error
	for _, name := range order {
		d, ok := e.derived[name]
		if !ok {
			continue
		}
		if err := e.computeLocked(d); err != nil {
			e.log(LogEvent{Op: "derive", Setting: name, Err: err})
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// DependsOn returns the prerequisites declared for a derived setting.
func (e *Engine) DependsOn(name string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.derived[name]
	if !ok {
		if _, stored := e.defs[name]; stored {
			return nil, nil
		}
		return nil, unknownSetting(name)
	}
	return append([]string(nil), d.dependsOn...), nil
}

// IsDerived reports whether name is a derived setting.
func (e *Engine) IsDerived(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.derived[name]
	return ok
}

func derivedDescriptor(_ *derivedSetting, value any) TypeDescriptor {
	t, err := InferDataType(value)
	if err != nil {
		t = TypeString
	}
	return TypeDescriptor{Type: t.String()}
}
