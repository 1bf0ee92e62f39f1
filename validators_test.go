package settings

import (
	"errors"
	"testing"
)

func validatorKey(err error) string {
	var invalid *InvalidParameterError
	if errors.As(err, &invalid) {
		return invalid.Key
	}
	return ""
}

func TestBuiltinValidators(t *testing.T) {
	factories := builtinValidators(func(username string) bool { return username == "sam" })
	build := func(id string, opts ValidatorOptions) Validator {
		t.Helper()
		opts.Setting = "x"
		v, err := factories[id](opts)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		return v
	}

	cases := []struct {
		name  string
		v     Validator
		value string
		key   string
	}{
		{"integer in range", build(ValidatorInteger, ValidatorOptions{}), "10", ""},
		{"integer below default min", build(ValidatorInteger, ValidatorOptions{}), "-1", KeyIntegerMinMax},
		{"integer above default max", build(ValidatorInteger, ValidatorOptions{}), "2000000001", KeyIntegerMinMax},
		{"hidden integer is unbounded", build(ValidatorInteger, ValidatorOptions{Hidden: true}), "-5", ""},
		{"integer garbage", build(ValidatorInteger, ValidatorOptions{}), "ten", KeyIntegerMinMax},
		{"string blank allowed", build(ValidatorString, ValidatorOptions{}), "", ""},
		{"string blank rejected", build(ValidatorString, ValidatorOptions{AllowEmpty: boolPtr(false)}), "", KeyBlankNotAllowed},
		{"string too short", build(ValidatorString, ValidatorOptions{Min: intPtr(3)}), "ab", KeyStringMin},
		{"string too long", build(ValidatorString, ValidatorOptions{Max: intPtr(3)}), "abcd", KeyStringMax},
		{"string counts runes", build(ValidatorString, ValidatorOptions{Max: intPtr(3)}), "äöü", ""},
		{"string regex", build(ValidatorString, ValidatorOptions{Regex: `^\d+$`}), "12a", KeyRegexMismatch},
		{"string custom regex key", build(ValidatorString, ValidatorOptions{Regex: `^\d+$`, RegexError: "errors.digits"}), "x", "errors.digits"},
		{"regex valid", build(ValidatorRegex, ValidatorOptions{}), `^a+$`, ""},
		{"regex invalid", build(ValidatorRegex, ValidatorOptions{}), `(`, KeyInvalidRegex},
		{"email valid", build(ValidatorEmail, ValidatorOptions{}), "admin@example.com", ""},
		{"email display name", build(ValidatorEmail, ValidatorOptions{}), "Admin <admin@example.com>", KeyInvalidEmail},
		{"username known", build(ValidatorUsername, ValidatorOptions{}), "sam", ""},
		{"username unknown", build(ValidatorUsername, ValidatorOptions{}), "alex", KeyUnknownUsername},
		{"username malformed", build(ValidatorUsername, ValidatorOptions{}), "a b", KeyInvalidUsername},
		{"host list", build(ValidatorHostList, ValidatorOptions{}), "example.com|cdn.example.com", ""},
		{"host wildcard", build(ValidatorHostList, ValidatorOptions{}), "example.com|*.example.com", KeyInvalidHostWildcard},
	}
	for _, tc := range cases {
		err := tc.v.Validate(tc.value)
		if tc.key == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if got := validatorKey(err); got != tc.key {
			t.Fatalf("%s: expected %s, got %q (%v)", tc.name, tc.key, got, err)
		}
	}
}

func TestStringValidatorRejectsBadPattern(t *testing.T) {
	_, err := newStringValidator(ValidatorOptions{Setting: "x", Regex: "("})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
