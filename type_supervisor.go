package settings

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-settings/pkg/validations"
)

// TypeSupervisor owns the resolved type of every setting together with its
// choice set and validator binding.
type TypeSupervisor struct {
	mu       sync.RWMutex
	defaults *DefaultsProvider

	types      map[string]DataType
	static     map[string]DataType
	allowAny   map[string]bool
	choices    map[string][]string
	enums      map[string]Enum
	validators map[string]validatorBinding

	enumRegistry map[string]Enum
	factories    map[string]ValidatorFactory
	rules        validations.Rules
	reader       validations.Reader
}

type validatorBinding struct {
	name      string
	opts      ValidatorOptions
	validator Validator
}

// SupervisorOption configures a TypeSupervisor.
type SupervisorOption func(*TypeSupervisor)

// SupervisorWithEnums makes enums resolvable by Definition.EnumName.
func SupervisorWithEnums(enums map[string]Enum) SupervisorOption {
	return func(s *TypeSupervisor) {
		for name, e := range enums {
			s.enumRegistry[name] = e
		}
	}
}

// SupervisorWithValidators adds or replaces validator factories.
func SupervisorWithValidators(factories map[string]ValidatorFactory) SupervisorOption {
	return func(s *TypeSupervisor) {
		for name, f := range factories {
			s.factories[name] = f
		}
	}
}

// SupervisorWithRules binds cross-setting rules. read resolves the current
// values the rules compare against.
func SupervisorWithRules(rules validations.Rules, read validations.Reader) SupervisorOption {
	return func(s *TypeSupervisor) {
		s.rules = s.rules.Merge(rules)
		if read != nil {
			s.reader = read
		}
	}
}

// NewTypeSupervisor builds a supervisor inferring types from defaults.
func NewTypeSupervisor(defaults *DefaultsProvider, opts ...SupervisorOption) *TypeSupervisor {
	s := &TypeSupervisor{
		defaults:     defaults,
		types:        map[string]DataType{},
		static:       map[string]DataType{},
		allowAny:     map[string]bool{},
		choices:      map[string][]string{},
		enums:        map[string]Enum{},
		validators:   map[string]validatorBinding{},
		enumRegistry: map[string]Enum{},
		factories:    builtinValidators(nil),
		rules:        validations.Rules{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register records the type, choices and validator of def. The default must
// already be loaded into the DefaultsProvider.
func (s *TypeSupervisor) Register(def Definition) error {
	name := def.Name
	s.mu.Lock()
	defer s.mu.Unlock()

	var enum Enum
	switch {
	case def.Enum != nil:
		enum = def.Enum
	case def.EnumName != "":
		enum = s.enumRegistry[def.EnumName]
		if enum == nil {
			return &ConfigurationError{Setting: name, Reason: fmt.Sprintf("unknown enum %q", def.EnumName)}
		}
	}

	staticType := def.Type
	if enum != nil {
		staticType = TypeEnum
	}

	var base any
	if s.defaults != nil {
		base, _ = s.defaults.Get(name)
	}
	resolved := staticType
	if !resolved.Valid() {
		inferred, err := InferDataType(base)
		if err != nil {
			return &ConfigurationError{Setting: name, Reason: "cannot infer type from default", Err: err}
		}
		resolved = inferred
	}

	opts := ValidatorOptions{
		Setting:    name,
		Type:       resolved,
		Min:        def.Min,
		Max:        def.Max,
		Regex:      def.Regex,
		RegexError: def.RegexError,
		AllowEmpty: def.AllowEmpty,
		Hidden:     def.Hidden,
		Rule:       def.Rule,
	}
	var binding *validatorBinding
	if !def.DisableValidator {
		id := def.Validator
		if id == "" && def.Rule != "" {
			id = ValidatorExpr
		}
		if id == "" {
			id = defaultValidatorFor(resolved)
		}
		if id != "" {
			factory := s.factories[id]
			if factory == nil {
				return &ConfigurationError{Setting: name, Reason: fmt.Sprintf("unknown validator %q", id)}
			}
			v, err := factory(opts)
			if err != nil {
				return &ConfigurationError{Setting: name, Reason: fmt.Sprintf("build validator %q", id), Err: err}
			}
			binding = &validatorBinding{name: id, opts: opts, validator: v}
		}
	}

	if staticType.Valid() {
		s.static[name] = staticType
	} else {
		delete(s.static, name)
	}
	s.types[name] = resolved
	if enum != nil {
		s.enums[name] = enum
	} else {
		delete(s.enums, name)
	}
	switch {
	case resolved == TypeList:
		s.allowAny[name] = def.AllowAny == nil || *def.AllowAny
	case def.AllowAny != nil:
		s.allowAny[name] = *def.AllowAny
	default:
		delete(s.allowAny, name)
	}
	for _, choice := range def.Choices {
		if !containsString(s.choices[name], choice) {
			s.choices[name] = append(s.choices[name], choice)
		}
	}
	if binding != nil {
		s.validators[name] = *binding
	} else {
		delete(s.validators, name)
	}
	return nil
}

// typeEntry is everything Register records for one setting.
type typeEntry struct {
	name      string
	resolved  DataType
	static    DataType
	allowAny  bool
	choices   []string
	enum      Enum
	validator validatorBinding

	hasType, hasStatic, hasAllowAny   bool
	hasChoices, hasEnum, hasValidator bool
}

func (s *TypeSupervisor) captureSetting(name string) typeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := typeEntry{name: name}
	e.resolved, e.hasType = s.types[name]
	e.static, e.hasStatic = s.static[name]
	e.allowAny, e.hasAllowAny = s.allowAny[name]
	e.choices, e.hasChoices = s.choices[name]
	e.choices = append([]string(nil), e.choices...)
	e.enum, e.hasEnum = s.enums[name]
	e.validator, e.hasValidator = s.validators[name]
	return e
}

func (s *TypeSupervisor) restoreSetting(e typeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	restoreKey(s.types, e.name, e.resolved, e.hasType)
	restoreKey(s.static, e.name, e.static, e.hasStatic)
	restoreKey(s.allowAny, e.name, e.allowAny, e.hasAllowAny)
	restoreKey(s.choices, e.name, e.choices, e.hasChoices)
	restoreKey(s.enums, e.name, e.enum, e.hasEnum)
	restoreKey(s.validators, e.name, e.validator, e.hasValidator)
}

func restoreKey[V any](m map[string]V, name string, v V, ok bool) {
	if ok {
		m[name] = v
		return
	}
	delete(m, name)
}

// Type returns the resolved type of name.
func (s *TypeSupervisor) Type(name string) (DataType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	return t, ok
}

// Choices returns the choice set of name.
func (s *TypeSupervisor) Choices(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.choices[name]...)
}

// ValidatorName returns the identifier of the validator bound to name.
func (s *TypeSupervisor) ValidatorName(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validators[name].name
}

// staticOrInferred is the type name takes on from value.
func (s *TypeSupervisor) staticOrInferred(name string, value any) (DataType, error) {
	if t, ok := s.static[name]; ok {
		return t, nil
	}
	return InferDataType(value)
}

// CoerceForRead converts raw into the Go value of the setting type. A valid
// override is adopted when the setting has no concrete type yet.
func (s *TypeSupervisor) CoerceForRead(name string, raw any, override DataType) (any, error) {
	t := s.readType(name, raw, override)
	var (
		value any
		err   error
	)
	switch t {
	case TypeFloat:
		value, err = toFloat(raw)
	case TypeInteger:
		value, err = toInt(raw)
	case TypeBool:
		value, err = parseBool(raw)
	case TypeNull:
		return nil, nil
	case TypeEnum:
		if s.enumIsInteger(name) {
			value, err = toInt(raw)
		} else {
			value = toString(raw)
		}
	case TypeString:
		value = toString(raw)
	default:
		if !t.Valid() {
			return nil, &InvalidParameterError{Setting: name, Key: KeyInvalidValue,
				Message: fmt.Sprintf("cannot read value of type %s", t)}
		}
		value = toString(raw)
	}
	if err != nil {
		return nil, &InvalidParameterError{Setting: name, Key: KeyInvalidValue, Err: err}
	}
	return value, nil
}

func (s *TypeSupervisor) readType(name string, raw any, override DataType) DataType {
	s.mu.RLock()
	t, known := s.types[name]
	s.mu.RUnlock()
	if known && t != TypeNull {
		return t
	}
	if override.Valid() {
		if known && override != TypeNull {
			s.mu.Lock()
			s.types[name] = override
			s.mu.Unlock()
		}
		return override
	}
	if known {
		return t
	}
	inferred, err := InferDataType(raw)
	if err != nil {
		return 0
	}
	return inferred
}

func (s *TypeSupervisor) enumIsInteger(name string) bool {
	if s.defaults == nil {
		return false
	}
	def, _ := s.defaults.Get(name)
	return isIntegerValue(def)
}

// NormalizeForWrite converts candidate into its stored string form and the
// type it is stored under.
func (s *TypeSupervisor) NormalizeForWrite(name string, candidate any) (string, DataType, error) {
	s.mu.RLock()
	t, known := s.types[name]
	s.mu.RUnlock()
	if !known {
		inferred, err := InferDataType(candidate)
		if err != nil {
			return "", 0, asInvalidParameter(name, err)
		}
		t = inferred
	}
	if t == TypeNull {
		if candidate == nil || toString(candidate) == "" {
			return "", TypeNull, nil
		}
		s.mu.RLock()
		derived, err := s.staticOrInferred(name, candidate)
		s.mu.RUnlock()
		if err != nil {
			return "", 0, asInvalidParameter(name, err)
		}
		if derived == TypeNull {
			return "", TypeNull, nil
		}
		t = derived
	}
	value, err := s.normalizeAs(name, t, candidate)
	if err != nil {
		return "", 0, err
	}
	return value, t, nil
}

func (s *TypeSupervisor) normalizeAs(name string, t DataType, candidate any) (string, error) {
	switch {
	case t == TypeBool:
		token, err := boolToken(candidate)
		if err != nil {
			return "", &InvalidParameterError{Setting: name, Key: KeyInvalidBool, Err: err}
		}
		return token, nil
	case t == TypeInteger:
		n, err := toInt(candidate)
		if err != nil {
			return "", &InvalidParameterError{Setting: name, Key: KeyInvalidInteger, Err: err}
		}
		return strconv.Itoa(n), nil
	case t == TypeFloat:
		f, err := toFloat(candidate)
		if err != nil {
			return "", &InvalidParameterError{Setting: name, Key: KeyInvalidFloat, Err: err}
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case t == TypeEnum:
		if s.enumIsInteger(name) {
			if n, err := toInt(candidate); err == nil {
				return strconv.Itoa(n), nil
			}
		}
		return strings.TrimSpace(toString(candidate)), nil
	default:
		return toString(candidate), nil
	}
}

// Validate checks value, already normalized under t, against the enum or
// choice set, the bound validator and the rule registered for name.
func (s *TypeSupervisor) Validate(name string, t DataType, value string) error {
	s.mu.RLock()
	enum := s.enums[name]
	choices, hasChoices := s.choices[name]
	allowAny, hasAllowAny := s.allowAny[name]
	binding, hasBinding := s.validators[name]
	rule := s.rules[name]
	reader := s.reader
	s.mu.RUnlock()

	if t == TypeEnum {
		switch {
		case enum != nil:
			if !EnumContains(enum, value) {
				return invalidParameter(name, KeyInvalidValue, "%q is not a valid value", value)
			}
		case hasChoices:
			if !containsString(choices, value) {
				return invalidParameter(name, KeyInvalidValue, "%q is not a valid choice", value)
			}
		default:
			return invalidParameter(name, KeyMissingChoices, "no values are allowed")
		}
	}

	if (t == TypeList || t == TypeString) && hasAllowAny && !allowAny {
		var offending []string
		for _, element := range splitList(value) {
			if !containsString(choices, element) {
				offending = append(offending, element)
			}
		}
		if len(offending) > 0 {
			return &InvalidParameterError{
				Setting: name,
				Key:     KeyInvalidChoice,
				Params:  map[string]any{"name": strings.Join(offending, ", "), "count": len(offending)},
				Values:  offending,
				Message: fmt.Sprintf("%s not in the allowed choices", strings.Join(offending, ", ")),
			}
		}
	}

	if hasBinding && binding.validator != nil {
		if err := binding.validator.Validate(value); err != nil {
			return asInvalidParameter(name, err)
		}
	}

	if rule != nil {
		if err := rule(value, reader); err != nil {
			return asInvalidParameter(name, err)
		}
	}
	return nil
}

// TypeDescriptor describes name for rendering a choice widget.
func (s *TypeSupervisor) TypeDescriptor(name string) (TypeDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	if !ok {
		return TypeDescriptor{}, unknownSetting(name)
	}
	desc := TypeDescriptor{Type: t.String()}
	if t == TypeEnum {
		if enum := s.enums[name]; enum != nil {
			desc.ValidValues = enum.Values()
			desc.TranslateNames = enum.TranslateNames()
		} else {
			for _, choice := range s.choices[name] {
				desc.ValidValues = append(desc.ValidValues, EnumValue{Name: choice, Value: choice})
			}
		}
	}
	if t == TypeList {
		if allowAny, ok := s.allowAny[name]; ok {
			desc.AllowAny = &allowAny
		}
	}
	if choices := s.choices[name]; len(choices) > 0 {
		desc.Choices = append([]string(nil), choices...)
	}
	if binding, ok := s.validators[name]; ok {
		desc.Min = binding.opts.Min
		desc.Max = binding.opts.Max
		desc.Regex = binding.opts.Regex
	}
	return desc, nil
}

// Forget drops everything known about name.
func (s *TypeSupervisor) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.types, name)
	delete(s.static, name)
	delete(s.allowAny, name)
	delete(s.choices, name)
	delete(s.enums, name)
	delete(s.validators, name)
}

// RuleNames returns the setting names with a bound cross-setting rule.
func (s *TypeSupervisor) RuleNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.Names()
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
