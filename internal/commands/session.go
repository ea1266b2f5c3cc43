package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/kingrea/birdwatcher/internal/plugin"
)

var resourceMeta = plugin.CommandMetadata{
	Description: "Execute commands from a resource file",
	Names:       []string{"resource"},
	Usage:       "resource FILE",
	DetailedUsage: `The resource command executes commands from a file on disk. Resource files
hold one command per line. Empty lines and lines starting with # or // are
ignored.

USAGE:

Execute commands from a resource file:
  resource FILE`,
}

type resource struct{}

func (r *resource) Run(ctx *plugin.Context, args []string) error {
	if len(args) == 0 {
		return plugin.Failf("You must provide a path to a resource file")
	}
	path, err := plugin.ExpandPath(strings.Join(args, " "))
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return plugin.Failf("File %s does not exist", path)
	}
	if err != nil {
		return plugin.Failf("File %s is not readable", path)
	}
	if info.IsDir() {
		return plugin.Failf("File %s is a directory", path)
	}
	return ctx.Console.RunResource(path)
}

var spoolMeta = plugin.CommandMetadata{
	Description: "Write console output into a file as well the screen",
	Names:       []string{"spool"},
	Usage:       "spool FILE|off",
	DetailedUsage: `The spool command writes all console output into a file as well the
screen. Output is appended when the file already exists.

USAGE:

Spool output to a file:
  spool FILE

Turn off spooling:
  spool off

See status of spooling:
  spool status`,
}

type spoolCommand struct{}

func (s *spoolCommand) Run(ctx *plugin.Context, args []string) error {
	if len(args) == 0 {
		return plugin.Failf("You must provide a path to a file or an action")
	}
	switch strings.ToLower(args[0]) {
	case "start":
		return s.start(ctx, strings.Join(args[1:], " "))
	case "off", "stop":
		if err := ctx.Console.StopSpool(); err != nil {
			return err
		}
		ctx.Out.Info("Output spooling stopped")
	case "status":
		if path := ctx.Console.SpoolPath(); path != "" {
			ctx.Out.Info("Spooling output to " + ctx.Out.Bold(path))
		} else {
			ctx.Out.Info("Output spooling is stopped")
		}
	default:
		return s.start(ctx, strings.Join(args, " "))
	}
	return nil
}

func (s *spoolCommand) start(ctx *plugin.Context, file string) error {
	if strings.TrimSpace(file) == "" {
		return plugin.Failf("You must provide a path to a file")
	}
	path, err := plugin.ExpandPath(file)
	if err != nil {
		return err
	}
	if err := ctx.Console.StartSpool(path); err != nil {
		return err
	}
	ctx.Out.Info("Spooling output to " + ctx.Out.Bold(ctx.Console.SpoolPath()))
	return nil
}

var shellMeta = plugin.CommandMetadata{
	Description: "Execute shell command",
	Names:       []string{"shell"},
	Usage:       "shell COMMAND",
}

type shell struct{}

func (s *shell) Run(ctx *plugin.Context, args []string) error {
	if len(args) == 0 {
		return plugin.Failf("You must provide a shell command to execute")
	}
	cmd := exec.CommandContext(ctx.Ctx(), "sh", "-c", strings.Join(args, " "))
	combined, err := cmd.CombinedOutput()
	if len(combined) > 0 {
		ctx.Out.Print(string(combined))
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ctx.Out.Warn(fmt.Sprintf("Command exited with status %d", exitErr.ExitCode()))
		return nil
	}
	return err
}

var exitMeta = plugin.CommandMetadata{
	Description: "Exit Birdwatcher",
	Names:       []string{"exit", "quit", "q"},
	Usage:       "exit",
}

type exit struct{}

func (e *exit) Run(ctx *plugin.Context, _ []string) error {
	ctx.Out.Output("Goodbye.")
	ctx.Console.Exit()
	return nil
}
