package settings

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParameter marks a candidate value that failed coercion,
	// membership, a validator or a cross-setting rule.
	ErrInvalidParameter = errors.New("settings: invalid parameter")
	// ErrConfiguration marks a malformed registration or schema.
	ErrConfiguration = errors.New("settings: configuration error")
	// ErrStorageUnavailable marks a missing backing store. Providers absorb it;
	// it surfaces only from explicit probes.
	ErrStorageUnavailable = errors.New("settings: storage unavailable")
	// ErrInvalidLocale marks a locale rejected by the locale validator.
	ErrInvalidLocale = errors.New("settings: invalid locale")
	// ErrUnknownSetting marks a name that was never registered.
	ErrUnknownSetting = errors.New("settings: unknown setting")
)

// Message keys attached to InvalidParameterError.
const (
	KeyInvalidValue        = "errors.site_settings.invalid_value"
	KeyInvalidChoice       = "errors.site_settings.invalid_choice"
	KeyMissingChoices      = "errors.site_settings.missing_choices"
	KeyUnsupportedValue    = "errors.site_settings.unsupported_value"
	KeyInvalidInteger      = "errors.site_settings.invalid_integer"
	KeyInvalidFloat        = "errors.site_settings.invalid_float"
	KeyInvalidBool         = "errors.site_settings.invalid_bool"
	KeyInvalidLocale       = "errors.site_settings.invalid_locale"
	KeyReadOnly            = "errors.site_settings.read_only"
	KeyRuleRejected        = "errors.site_settings.rule_rejected"
	KeyIntegerMinMax       = "site_settings.errors.invalid_integer_min_max"
	KeyIntegerMin          = "site_settings.errors.invalid_integer_min"
	KeyIntegerMax          = "site_settings.errors.invalid_integer_max"
	KeyStringMinMax        = "site_settings.errors.invalid_string_min_max"
	KeyStringMin           = "site_settings.errors.invalid_string_min"
	KeyStringMax           = "site_settings.errors.invalid_string_max"
	KeyBlankNotAllowed     = "site_settings.errors.blank_not_allowed"
	KeyRegexMismatch       = "site_settings.errors.regex_mismatch"
	KeyInvalidRegex        = "site_settings.errors.invalid_regex"
	KeyInvalidEmail        = "site_settings.errors.invalid_email"
	KeyInvalidUsername     = "site_settings.errors.invalid_username"
	KeyUnknownUsername     = "site_settings.errors.unknown_username"
	KeyInvalidHostWildcard = "site_settings.errors.invalid_domain_hostname"
)

// InvalidParameterError reports a rejected candidate value.
type InvalidParameterError struct {
	Setting string
	// Key is the translation key describing the failure.
	Key    string
	Params map[string]any
	// Values lists the offending elements of a list candidate.
	Values  []string
	Message string
	Err     error
}

func (e *InvalidParameterError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("settings: invalid parameter")
	if e.Setting != "" {
		fmt.Fprintf(&b, " %q", e.Setting)
	}
	switch {
	case e.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Key != "":
		b.WriteString(": ")
		b.WriteString(e.Key)
	}
	return b.String()
}

func (e *InvalidParameterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is ErrInvalidParameter.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// ConfigurationError reports a malformed registration.
type ConfigurationError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "settings: configuration"
	if e.Setting != "" {
		msg += fmt.Sprintf(" %q", e.Setting)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func unknownSetting(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownSetting, name)
}

func invalidParameter(setting, key, format string, args ...any) *InvalidParameterError {
	return &InvalidParameterError{
		Setting: setting,
		Key:     key,
		Message: fmt.Sprintf(format, args...),
	}
}

type localizedError interface {
	MessageKey() string
	MessageParams() map[string]any
}

// asInvalidParameter converts rule and validator failures into an
// InvalidParameterError, keeping any translation key they carry.
func asInvalidParameter(setting string, err error) error {
	if err == nil {
		return nil
	}
	var invalid *InvalidParameterError
	if errors.As(err, &invalid) {
		if invalid.Setting == "" {
			invalid.Setting = setting
		}
		return invalid
	}
	out := &InvalidParameterError{Setting: setting, Key: KeyRuleRejected, Err: err}
	var localized localizedError
	if errors.As(err, &localized) {
		out.Key = localized.MessageKey()
		out.Params = localized.MessageParams()
	}
	return out
}
