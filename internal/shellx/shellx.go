// Package shellx helps to write shell-like Go code.
package shellx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/shlex"
	"github.com/ooni/dnsbench/internal/model"
	"golang.org/x/sys/execabs"
)

// Dependencies is the library on which this package depends.
type Dependencies interface {
	// CmdOutput is equivalent to calling c.Output.
	CmdOutput(c *execabs.Cmd) ([]byte, error)

	// CmdRun is equivalent to calling c.Run.
	CmdRun(c *execabs.Cmd) error

	// LookPath is equivalent to calling execabs.LookPath.
	LookPath(file string) (string, error)
}

// Library contains the default dependencies.
var Library Dependencies = &StdlibDependencies{}

// StdlibDependencies contains the stdlib implementation of the [Dependencies].
type StdlibDependencies struct{}

// CmdOutput implements [Dependencies].
func (*StdlibDependencies) CmdOutput(c *execabs.Cmd) ([]byte, error) {
	return c.Output()
}

// CmdRun implements [Dependencies].
func (*StdlibDependencies) CmdRun(c *execabs.Cmd) error {
	return c.Run()
}

// LookPath implements [Dependencies].
func (*StdlibDependencies) LookPath(file string) (string, error) {
	return execabs.LookPath(file)
}

// Envp is the environment in which we execute commands.
type Envp struct {
	// V contains the OPTIONAL environment variables to add to the current
	// environment when we're executing commands.
	V []string
}

// Append appends an environment variable to the environment.
func (e *Envp) Append(key, value string) {
	e.V = append(e.V, fmt.Sprintf("%s=%s", key, value))
}

// Argv contains the complete argv.
type Argv struct {
	// P is the MANDATORY program to execute.
	P string

	// V contains the OPTIONAL arguments.
	V []string
}

// NewArgv creates a new [Argv] from the given command and arguments.
func NewArgv(command string, args ...string) (*Argv, error) {
	fullpath, err := Library.LookPath(command) // allows mocking
	if err != nil {
		return nil, err
	}
	argv := &Argv{
		P: fullpath,
		V: args,
	}
	return argv, nil
}

// ParseCommandLine creates an instance of [Argv] from the given command line.
func ParseCommandLine(cmdline string) (*Argv, error) {
	args, err := shlex.Split(cmdline)
	if err != nil {
		return nil, err
	}
	if len(args) < 1 {
		return nil, ErrNoCommandToExecute
	}
	return NewArgv(args[0], args[1:]...)
}

// Append appends arguments to the command line.
func (a *Argv) Append(args ...string) {
	a.V = append(a.V, args...)
}

// String returns the quoted command line.
func (a *Argv) String() string {
	return quotedCommandLine(a.P, a.V...)
}

const (
	// FlagShowStdoutStderr enables connecting the child's stdout and stderr
	// to the current program's stdout and stderr.
	FlagShowStdoutStderr = 1 << iota
)

// Config contains config for executing programs.
type Config struct {
	// Logger is the OPTIONAL logger to use.
	Logger model.Logger

	// Flags contains OPTIONAL binary flags to configure the program.
	Flags int64
}

// ExecError is the error returned when a command fails.
type ExecError struct {
	// Cmdline is the quoted command line.
	Cmdline string

	// Stderr contains what the command wrote on the standard error.
	Stderr string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *ExecError) Error() string {
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		return fmt.Sprintf("%s: %s: %s", e.Cmdline, e.Err.Error(), stderr)
	}
	return fmt.Sprintf("%s: %s", e.Cmdline, e.Err.Error())
}

// Unwrap allows to use errors.Is and errors.As.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// cmd creates a new [execabs.Cmd] instance.
func cmd(ctx context.Context, config *Config, argv *Argv, envp *Envp) *execabs.Cmd {
	cmd := execabs.CommandContext(ctx, argv.P, argv.V...)
	cmd.Env = os.Environ()
	for _, entry := range envp.V {
		if config.Logger != nil {
			config.Logger.Debugf("+ export %s", entry)
		}
		cmd.Env = append(cmd.Env, entry)
	}
	if config.Logger != nil {
		config.Logger.Infof("+ %s", argv.String())
	}
	return cmd
}

// stderrWriter returns the writer collecting the child's stderr.
func stderrWriter(config *Config, stderr *bytes.Buffer) io.Writer {
	if (config.Flags & FlagShowStdoutStderr) != 0 {
		return io.MultiWriter(stderr, os.Stderr)
	}
	return stderr
}

// OutputEx runs the given command and returns its standard output. On
// failure, the returned error is an [*ExecError].
func OutputEx(ctx context.Context, config *Config, argv *Argv, envp *Envp) ([]byte, error) {
	cmd := cmd(ctx, config, argv, envp)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderrWriter(config, stderr)
	data, err := Library.CmdOutput(cmd) // allows mocking
	if err != nil {
		return nil, &ExecError{Cmdline: argv.String(), Stderr: stderr.String(), Err: err}
	}
	return data, nil
}

// RunEx runs the given command. On failure, the returned error
// is an [*ExecError].
func RunEx(ctx context.Context, config *Config, argv *Argv, envp *Envp) error {
	cmd := cmd(ctx, config, argv, envp)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderrWriter(config, stderr)
	if (config.Flags & FlagShowStdoutStderr) != 0 {
		cmd.Stdout = os.Stdout
	}
	if err := Library.CmdRun(cmd); err != nil { // allows mocking
		return &ExecError{Cmdline: argv.String(), Stderr: stderr.String(), Err: err}
	}
	return nil
}

// ErrNoCommandToExecute means that the command line is empty.
var ErrNoCommandToExecute = errors.New("shellx: no command to execute")

// quotedCommandLine returns a quoted command line.
func quotedCommandLine(command string, args ...string) string {
	v := []string{}
	v = append(v, maybeQuoteArg(command))
	for _, a := range args {
		v = append(v, maybeQuoteArg(a))
	}
	return strings.Join(v, " ")
}

// maybeQuoteArg quotes a command line argument if needed.
func maybeQuoteArg(a string) string {
	if strings.Contains(a, "\"") {
		a = strings.ReplaceAll(a, "\"", "\\\"")
	}
	if strings.Contains(a, " ") {
		a = "\"" + a + "\""
	}
	return a
}
