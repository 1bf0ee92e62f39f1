package settings

import (
	"encoding/json"

	"github.com/goliatone/go-settings/pkg/locale"
)

// Layer names used in a Trace, highest precedence first.
const (
	LayerOverride = "override"
	LayerLocale   = "locale"
	LayerBase     = "base"
	LayerDerived  = "derived"
)

// Trace captures how each layer contributed to the effective value of a
// setting.
type Trace struct {
	Setting string       `json:"setting"`
	Locale  string       `json:"locale"`
	Value   any          `json:"value,omitempty"`
	Layers  []Provenance `json:"layers"`
}

// Provenance details what one layer holds for a traced setting.
type Provenance struct {
	Source string `json:"source"`
	Locale string `json:"locale,omitempty"`
	Value  any    `json:"value,omitempty"`
	Found  bool   `json:"found"`
}

// Winner returns the first layer that holds a value.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Trace reports the override, locale default and base default of name.
func (e *Engine) Trace(name string) (Trace, error) {
	e.mu.RLock()
	target := e.resolveLocked(name, false)
	value, known := e.current[target]
	row, overridden := e.overrides[target]
	_, isDerived := e.derived[target]
	e.mu.RUnlock()
	if !known {
		return Trace{}, unknownSetting(name)
	}

	site := e.defaults.SiteLocale()
	trace := Trace{Setting: target, Locale: site, Value: value}
	if isDerived {
		trace.Layers = []Provenance{{Source: LayerDerived, Value: value, Found: true}}
		return trace, nil
	}

	override := Provenance{Source: LayerOverride}
	if overridden {
		override.Value = row.Value
		override.Found = true
	}
	trace.Layers = append(trace.Layers, override)

	if canonical := localeKey(site); canonical != locale.Base {
		v, ok := e.defaults.LocaleOverride(target, site)
		trace.Layers = append(trace.Layers, Provenance{Source: LayerLocale, Locale: canonical, Value: v, Found: ok})
	}
	base, _ := e.defaults.GetForLocale(target, locale.Base)
	trace.Layers = append(trace.Layers, Provenance{Source: LayerBase, Locale: locale.Base, Value: base, Found: true})
	return trace, nil
}
