package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Command is implemented by every console command.
type Command interface {
	Run(ctx *Context, args []string) error
}

// Module is implemented by every runnable module.
type Module interface {
	Run(ctx *ModuleContext) (Result, error)
}

// CommandFactory constructs a fresh command instance per invocation.
type CommandFactory func() Command

// ModuleFactory constructs a fresh module instance per run.
type ModuleFactory func() Module

// CommandDescriptor is a registered command.
type CommandDescriptor struct {
	Metadata CommandMetadata
	New      CommandFactory
}

// Name returns the primary command name.
func (d *CommandDescriptor) Name() string {
	return d.Metadata.Name()
}

// Matches reports whether name invokes this command, ignoring case.
func (d *CommandDescriptor) Matches(name string) bool {
	for _, n := range d.Metadata.Names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// ModuleDescriptor is a registered module together with its option values.
type ModuleDescriptor struct {
	Path     string
	Metadata ModuleMetadata
	New      ModuleFactory
	Options  *Options
}

// Registry holds every command and module known to the console. It is
// populated once at startup and then frozen.
type Registry struct {
	mu       sync.RWMutex
	commands []*CommandDescriptor
	names    map[string]*CommandDescriptor
	modules  map[string]*ModuleDescriptor
	frozen   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names:   map[string]*CommandDescriptor{},
		modules: map[string]*ModuleDescriptor{},
	}
}

// RegisterCommand validates meta and installs the command. Names must be
// unique ignoring case.
func (r *Registry) RegisterCommand(meta CommandMetadata, factory CommandFactory) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("plugin: factory is required for command %s", meta.Name())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	for _, name := range meta.Names {
		if existing, ok := r.names[strings.ToLower(name)]; ok {
			return fmt.Errorf("plugin: command name %s already registered by %s", name, existing.Name())
		}
	}
	desc := &CommandDescriptor{Metadata: meta, New: factory}
	r.commands = append(r.commands, desc)
	for _, name := range meta.Names {
		r.names[strings.ToLower(name)] = desc
	}
	return nil
}

// MustRegisterCommand panics if registration fails.
func (r *Registry) MustRegisterCommand(meta CommandMetadata, factory CommandFactory) {
	if err := r.RegisterCommand(meta, factory); err != nil {
		panic(err)
	}
}

// RegisterModule validates path and meta and installs the module. Its
// option values start at their defaults.
func (r *Registry) RegisterModule(path string, meta ModuleMetadata, factory ModuleFactory) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if err := meta.Validate(); err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("plugin: factory is required for module %s", path)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	if _, exists := r.modules[path]; exists {
		return fmt.Errorf("plugin: module %s already registered", path)
	}
	r.modules[path] = &ModuleDescriptor{
		Path:     path,
		Metadata: meta,
		New:      factory,
		Options:  NewOptions(meta.Options),
	}
	return nil
}

// MustRegisterModule panics if registration fails.
func (r *Registry) MustRegisterModule(path string, meta ModuleMetadata, factory ModuleFactory) {
	if err := r.RegisterModule(path, meta, factory); err != nil {
		panic(err)
	}
}

// Freeze rejects any further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// FindCommand returns the command invoked by name, ignoring case.
func (r *Registry) FindCommand(name string) (*CommandDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.names[strings.ToLower(strings.TrimSpace(name))]
	return desc, ok
}

// FindModule returns the module registered at path.
func (r *Registry) FindModule(path string) (*ModuleDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.modules[strings.TrimSpace(path)]
	return desc, ok
}

// Commands returns every command ordered by usage.
func (r *Registry) Commands() []*CommandDescriptor {
	r.mu.RLock()
	out := append([]*CommandDescriptor(nil), r.commands...)
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metadata.Usage < out[j].Metadata.Usage
	})
	return out
}

// Modules returns every module ordered by path.
func (r *Registry) Modules() []*ModuleDescriptor {
	r.mu.RLock()
	out := make([]*ModuleDescriptor, 0, len(r.modules))
	for _, desc := range r.modules {
		out = append(out, desc)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ModulePaths returns every module path, sorted.
func (r *Registry) ModulePaths() []string {
	mods := r.Modules()
	paths := make([]string, len(mods))
	for i, desc := range mods {
		paths[i] = desc.Path
	}
	return paths
}

// SearchModules matches term against path, name and description, ignoring
// case.
func (r *Registry) SearchModules(term string) []*ModuleDescriptor {
	needle := strings.ToLower(strings.TrimSpace(term))
	var out []*ModuleDescriptor
	for _, desc := range r.Modules() {
		if containsFold(needle, desc.Path, desc.Metadata.Name, desc.Metadata.Description) {
			out = append(out, desc)
		}
	}
	return out
}

// SearchCommands matches term against names, usage and description,
// ignoring case.
func (r *Registry) SearchCommands(term string) []*CommandDescriptor {
	needle := strings.ToLower(strings.TrimSpace(term))
	var out []*CommandDescriptor
	for _, desc := range r.Commands() {
		fields := append([]string{desc.Metadata.Usage, desc.Metadata.Description}, desc.Metadata.Names...)
		if containsFold(needle, fields...) {
			out = append(out, desc)
		}
	}
	return out
}

// Completions lists input prefixes offered by the prompt: every command name
// plus `use <path>` for every module.
func (r *Registry) Completions() []string {
	var out []string
	for _, desc := range r.Commands() {
		out = append(out, desc.Metadata.Names...)
	}
	for _, path := range r.ModulePaths() {
		out = append(out, "use "+path)
	}
	sort.Strings(out)
	return out
}

func containsFold(needle string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
