package plugin

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/birdwatcher/internal/output"
)

// ExecuteCommand splits argumentLine on whitespace and runs a fresh instance
// of the command. Errors and panics stop here: they are reported to the
// user, logged, and turned into a false return.
func ExecuteCommand(ctx *Context, desc *CommandDescriptor, argumentLine string) bool {
	args := strings.Fields(argumentLine)
	ctx.Log().Debug("command dispatch",
		zap.String("command", desc.Name()),
		zap.Strings("args", args),
	)
	err := output.Guard(func() error {
		return desc.New().Run(ctx, args)
	})
	return report(ctx, "command", desc.Name(), err)
}

// ExecuteModule validates the module's required options and runs a fresh
// instance of it under the same boundary as commands. Every missing required
// option is reported, and such a module is never instantiated.
func ExecuteModule(ctx *Context, desc *ModuleDescriptor) bool {
	if missing := desc.Options.Missing(); len(missing) > 0 {
		for _, key := range missing {
			ctx.Out.Error("Setting for required option has not been set: " + key)
		}
		return false
	}
	mctx := NewModuleContext(ctx, desc)
	ctx.Log().Info("module run", zap.String("module", desc.Path))

	var result Result
	err := output.Guard(func() error {
		var runErr error
		result, runErr = desc.New().Run(mctx)
		return runErr
	})
	if !report(ctx, "module", desc.Path, err) {
		return false
	}
	switch result.Status {
	case StatusFailed:
		if result.Message != "" {
			ctx.Out.Error(result.Message)
		}
		return false
	case StatusNoOp:
		if result.Message != "" {
			ctx.Out.Warn(result.Message)
		}
	default:
		if result.Message != "" {
			ctx.Out.Info(result.Message)
		}
	}
	return true
}

func report(ctx *Context, kind, name string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrReported) {
		ctx.Log().Debug(kind+" failed", zap.String(kind, name))
		return false
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		ctx.Out.Error(userErr.Message)
		ctx.Log().Debug(kind+" rejected input", zap.String(kind, name), zap.String("reason", userErr.Message))
		return false
	}
	ctx.Out.Error(output.Describe(err))
	fields := []zap.Field{zap.String(kind, name), zap.Error(err)}
	var panicErr *output.PanicError
	if errors.As(err, &panicErr) {
		ctx.Out.Output(ctx.Out.Muted(strings.TrimRight(string(panicErr.Stack), "\n")))
		fields = append(fields, zap.ByteString("stack", panicErr.Stack))
	}
	ctx.Log().Error(kind+" failed", fields...)
	return false
}
