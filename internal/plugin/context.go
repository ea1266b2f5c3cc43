package plugin

import (
	"context"

	"go.uber.org/zap"

	"github.com/kingrea/birdwatcher/internal/config"
	"github.com/kingrea/birdwatcher/internal/httpclient"
	"github.com/kingrea/birdwatcher/internal/output"
	"github.com/kingrea/birdwatcher/internal/pool"
	"github.com/kingrea/birdwatcher/internal/social"
	"github.com/kingrea/birdwatcher/internal/store"
)

// Console is the part of the interactive console that commands may drive.
// Session state is only mutated through these methods.
type Console interface {
	HandleInput(line string) bool
	RunResource(path string) error
	Confirm(question string) bool
	Exit()

	Workspace() *store.Workspace
	SetWorkspace(ws *store.Workspace)

	ActiveModule() *ModuleDescriptor
	UseModule(desc *ModuleDescriptor)
	UnloadModule()

	StartSpool(path string) error
	StopSpool() error
	SpoolPath() string
}

// Context carries shared runtime dependencies into every command and module.
type Context struct {
	Base     context.Context
	Console  Console
	Out      *output.Output
	Registry *Registry
	Store    *store.Store
	Social   social.Client
	Config   *config.Config
	Logger   *zap.Logger
}

// Ctx returns the cancellation context for blocking work.
func (ctx *Context) Ctx() context.Context {
	if ctx == nil || ctx.Base == nil {
		return context.Background()
	}
	return ctx.Base
}

// Workspace returns the session's current workspace.
func (ctx *Context) Workspace() *store.Workspace {
	if ctx.Console == nil {
		return nil
	}
	return ctx.Console.Workspace()
}

// Log returns the logger, never nil.
func (ctx *Context) Log() *zap.Logger {
	if ctx.Logger == nil {
		return zap.NewNop()
	}
	return ctx.Logger
}

// WithConsole returns a copy bound to a different console.
func (ctx *Context) WithConsole(c Console) *Context {
	clone := *ctx
	clone.Console = c
	return &clone
}

// ModuleContext is the context a module run receives.
type ModuleContext struct {
	*Context
	Module  *ModuleDescriptor
	Options *Options
}

// NewModuleContext binds ctx to desc and its class-level options.
func NewModuleContext(ctx *Context, desc *ModuleDescriptor) *ModuleContext {
	return &ModuleContext{Context: ctx, Module: desc, Options: desc.Options}
}

// Pool starts a worker pool of the given size. A non-positive size falls
// back to the configured thread count. Panics inside items are reported as
// error lines.
func (ctx *Context) Pool(size int) *pool.Pool {
	if size <= 0 && ctx.Config != nil {
		size = ctx.Config.Threads()
	}
	return pool.New(size,
		pool.WithLogger(ctx.Log()),
		pool.WithPanicHandler(func(err *output.PanicError) {
			ctx.Out.Error(output.Describe(err))
		}),
	)
}

// HTTPOptions returns client options seeded from the configuration.
func (ctx *Context) HTTPOptions() httpclient.Options {
	opts := httpclient.Options{Logger: ctx.Log()}
	if ctx.Config != nil {
		opts.Timeout = ctx.Config.Settings.HTTP.Timeout
		opts.Retries = ctx.Config.Settings.HTTP.Retries
		opts.UserAgents = ctx.Config.Settings.HTTP.UserAgents
	}
	return opts
}
