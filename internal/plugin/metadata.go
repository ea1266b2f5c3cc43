package plugin

import (
	"fmt"
	"regexp"
	"strings"
)

// CommandMetadata describes a console command.
type CommandMetadata struct {
	Description string
	// Names are the words that invoke the command; the first one is primary.
	Names []string
	Usage string
	// DetailedUsage is printed by `help <name>`.
	DetailedUsage string
}

// Validate ensures the metadata block is well-formed.
func (m CommandMetadata) Validate() error {
	label := m.primaryName()
	if strings.TrimSpace(m.Description) == "" {
		return &InvalidMetadataError{Kind: "command", Plugin: label, Field: "description", Reason: "is required"}
	}
	if len(m.Names) == 0 {
		return &InvalidMetadataError{Kind: "command", Plugin: label, Field: "names", Reason: "must contain at least one name"}
	}
	for i, name := range m.Names {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t") {
			return &InvalidMetadataError{Kind: "command", Plugin: label, Field: fmt.Sprintf("names[%d]", i), Reason: "must be a single non-empty word"}
		}
	}
	if strings.TrimSpace(m.Usage) == "" {
		return &InvalidMetadataError{Kind: "command", Plugin: label, Field: "usage", Reason: "is required"}
	}
	return nil
}

// Name returns the primary name.
func (m CommandMetadata) Name() string {
	return m.primaryName()
}

func (m CommandMetadata) primaryName() string {
	if len(m.Names) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Names[0])
}

// OptionSpec declares one configurable module option.
type OptionSpec struct {
	Key         string
	Default     any
	Description string
	Required    bool
	// Boolean options coerce truthy and falsy words on Set.
	Boolean bool
}

// ModuleMetadata describes a module.
type ModuleMetadata struct {
	Name        string
	Description string
	Author      string
	// Info is a longer free-text explanation shown by `show info`.
	Info    string
	Options []OptionSpec
}

// Validate ensures the metadata block is well-formed. Option keys are
// compared ignoring case.
func (m ModuleMetadata) Validate() error {
	label := strings.TrimSpace(m.Name)
	if label == "" {
		return &InvalidMetadataError{Kind: "module", Field: "name", Reason: "is required"}
	}
	if strings.TrimSpace(m.Description) == "" {
		return &InvalidMetadataError{Kind: "module", Plugin: label, Field: "description", Reason: "is required"}
	}
	if strings.TrimSpace(m.Author) == "" {
		return &InvalidMetadataError{Kind: "module", Plugin: label, Field: "author", Reason: "is required"}
	}
	seen := map[string]bool{}
	for i, opt := range m.Options {
		key := normalizeKey(opt.Key)
		field := fmt.Sprintf("options[%d]", i)
		if key == "" {
			return &InvalidMetadataError{Kind: "module", Plugin: label, Field: field + ".key", Reason: "is required"}
		}
		if strings.ContainsAny(key, " \t") {
			return &InvalidMetadataError{Kind: "module", Plugin: label, Field: field + ".key", Reason: "must be a single word"}
		}
		if seen[key] {
			return &InvalidMetadataError{Kind: "module", Plugin: label, Field: field + ".key", Reason: "duplicates " + key}
		}
		seen[key] = true
		if strings.TrimSpace(opt.Description) == "" {
			return &InvalidMetadataError{Kind: "module", Plugin: label, Field: field + ".description", Reason: "is required"}
		}
		if opt.Boolean && opt.Default != nil {
			if _, ok := opt.Default.(bool); !ok {
				return &InvalidMetadataError{Kind: "module", Plugin: label, Field: field + ".default", Reason: "must be a bool for boolean options"}
			}
		}
	}
	return nil
}

var modulePathPattern = regexp.MustCompile(`^[a-z0-9_]+(/[a-z0-9_]+)+$`)

func validatePath(path string) error {
	if !modulePathPattern.MatchString(path) {
		return &InvalidMetadataError{Kind: "module", Plugin: path, Field: "path", Reason: "must look like category/name"}
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Result captures the outcome of a module execution.
type Result struct {
	Status  Status
	Message string
}

// Status enumerates module run outcomes.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNoOp      Status = "no-op"
	StatusFailed    Status = "failed"
)

// Completed is a convenience for a successful result.
func Completed(format string, args ...any) Result {
	return Result{Status: StatusCompleted, Message: fmt.Sprintf(format, args...)}
}

// NoOp is a convenience for a run that found nothing to do.
func NoOp(format string, args ...any) Result {
	return Result{Status: StatusNoOp, Message: fmt.Sprintf(format, args...)}
}
