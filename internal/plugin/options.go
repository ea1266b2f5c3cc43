package plugin

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

var (
	truthy = map[string]bool{"1": true, "true": true, "yes": true, "on": true}
	falsy  = map[string]bool{"0": true, "false": true, "no": true, "off": true}
)

// ParseBool coerces a truthy or falsy word. ok is false for anything else.
func ParseBool(raw string) (value, ok bool) {
	word := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case truthy[word]:
		return true, true
	case falsy[word]:
		return false, true
	default:
		return false, false
	}
}

// OptionRow is a snapshot of one option for display.
type OptionRow struct {
	Spec  OptionSpec
	Value any
}

// Options holds the current values of a module's options. Values persist for
// the lifetime of the process.
type Options struct {
	mu     sync.RWMutex
	specs  []OptionSpec
	index  map[string]int
	values map[string]any
}

// NewOptions seeds values from the option defaults. Keys are uppercased.
func NewOptions(specs []OptionSpec) *Options {
	o := &Options{
		specs:  make([]OptionSpec, len(specs)),
		index:  make(map[string]int, len(specs)),
		values: make(map[string]any, len(specs)),
	}
	for i, spec := range specs {
		spec.Key = normalizeKey(spec.Key)
		o.specs[i] = spec
		o.index[spec.Key] = i
		o.values[spec.Key] = spec.Default
	}
	return o
}

// Len returns the number of declared options.
func (o *Options) Len() int {
	return len(o.specs)
}

// Spec returns the declaration for key.
func (o *Options) Spec(key string) (OptionSpec, error) {
	key = normalizeKey(key)
	idx, ok := o.index[key]
	if !ok {
		return OptionSpec{}, &UnknownOptionError{Key: key}
	}
	return o.specs[idx], nil
}

// Set stores raw for key. Boolean options map truthy and falsy words to
// true and false; any other word is kept verbatim.
func (o *Options) Set(key, raw string) error {
	spec, err := o.Spec(key)
	if err != nil {
		return err
	}
	var value any = raw
	if spec.Boolean {
		if b, ok := ParseBool(raw); ok {
			value = b
		}
	}
	o.mu.Lock()
	o.values[spec.Key] = value
	o.mu.Unlock()
	return nil
}

// Unset clears the value of key.
func (o *Options) Unset(key string) error {
	spec, err := o.Spec(key)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.values[spec.Key] = nil
	o.mu.Unlock()
	return nil
}

// Reset restores every option to its default.
func (o *Options) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, spec := range o.specs {
		o.values[spec.Key] = spec.Default
	}
}

// Missing lists required options without a value, in declaration order.
// An empty string counts as no value, so `--set DEST=` or a blank YAML
// entry leaves a required option missing.
func (o *Options) Missing() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var missing []string
	for _, spec := range o.specs {
		if spec.Required && isUnset(o.values[spec.Key]) {
			missing = append(missing, spec.Key)
		}
	}
	return missing
}

// Value returns the raw value of key.
func (o *Options) Value(key string) (any, error) {
	spec, err := o.Spec(key)
	if err != nil {
		return nil, err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.values[spec.Key], nil
}

// String returns the value of key as text. Unset values are empty.
func (o *Options) String(key string) (string, error) {
	value, err := o.Value(key)
	if err != nil {
		return "", err
	}
	return formatValue(value), nil
}

// Bool returns the value of key as a boolean. Unset values are false.
func (o *Options) Bool(key string) (bool, error) {
	value, err := o.Value(key)
	if err != nil {
		return false, err
	}
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if b, ok := ParseBool(v); ok {
			return b, nil
		}
		return false, fmt.Errorf("option %s: %q is not a boolean", normalizeKey(key), v)
	default:
		return false, fmt.Errorf("option %s: %v is not a boolean", normalizeKey(key), v)
	}
}

// Int returns the value of key as an integer. Unset values are zero.
func (o *Options) Int(key string) (int, error) {
	value, err := o.Value(key)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("option %s: %q is not a number", normalizeKey(key), v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("option %s: %v is not a number", normalizeKey(key), v)
	}
}

// Words splits a space separated option value.
func (o *Options) Words(key string) ([]string, error) {
	value, err := o.String(key)
	if err != nil {
		return nil, err
	}
	return strings.Fields(value), nil
}

// Snapshot returns every option with its current value in declaration order.
func (o *Options) Snapshot() []OptionRow {
	o.mu.RLock()
	defer o.mu.RUnlock()
	rows := make([]OptionRow, len(o.specs))
	for i, spec := range o.specs {
		rows[i] = OptionRow{Spec: spec, Value: o.values[spec.Key]}
	}
	return rows
}

// FormatOptionValue renders an option value for display.
func FormatOptionValue(value any) string {
	return formatValue(value)
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func isUnset(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok && s == "" {
		return true
	}
	return false
}
