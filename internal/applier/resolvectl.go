package applier

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"

	"github.com/ooni/dnsbench/internal/model"
	"github.com/ooni/dnsbench/internal/netifaces"
	"github.com/ooni/dnsbench/internal/shellx"
	"golang.org/x/sys/execabs"
)

// DefaultSudoCommand is the command we use to gain privileges by default.
const DefaultSudoCommand = "sudo"

// osGeteuid allows to mock os.Geteuid in tests.
var osGeteuid = os.Geteuid

// Resolvectl is a model.ConfigurationApplier using systemd-resolved's resolvectl.
type Resolvectl struct {
	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// SudoCommand is the OPTIONAL command line prepended to resolvectl when
	// UseSudo is true (default: DefaultSudoCommand).
	SudoCommand string

	// UseSudo indicates whether to run resolvectl using SudoCommand.
	UseSudo bool
}

var _ model.ConfigurationApplier = &Resolvectl{}

// Apply implements model.ConfigurationApplier. It runs `resolvectl dns IFACE ADDRS...`.
func (r *Resolvectl) Apply(ctx context.Context, iface string, resolvers []string) error {
	if iface == "" {
		return fmt.Errorf("%w: empty interface name", ErrInvalidInterface)
	}
	if len(resolvers) <= 0 {
		return fmt.Errorf("%w: no resolvers to apply", ErrConfiguration)
	}
	for _, resolver := range resolvers {
		if _, err := netip.ParseAddr(resolver); err != nil {
			return fmt.Errorf("%w: invalid resolver %q", ErrConfiguration, resolver)
		}
	}
	args := append([]string{"dns", iface}, resolvers...)
	if err := r.run(ctx, args...); err != nil {
		return err
	}
	r.logger().Infof("configured %s to use %s", iface, strings.Join(resolvers, " "))
	return nil
}

// Revert implements model.ConfigurationApplier. It runs `resolvectl revert IFACE`
// for every interface, even when reverting a previous interface failed.
func (r *Resolvectl) Revert(ctx context.Context, ifaces []string) error {
	failed := map[string]error{}
	for _, iface := range ifaces {
		if iface == "" {
			failed[iface] = fmt.Errorf("%w: empty interface name", ErrInvalidInterface)
			continue
		}
		if err := r.run(ctx, "revert", iface); err != nil {
			r.logger().Warnf("cannot revert %s: %s", iface, err.Error())
			failed[iface] = err
			continue
		}
		r.logger().Infof("reverted %s to automatic DNS", iface)
	}
	if len(failed) > 0 {
		return &RevertError{Failed: failed}
	}
	return nil
}

// Links returns the names of the links known to systemd-resolved. Listing
// links does not require privileges, so we never use sudo here.
func (r *Resolvectl) Links(ctx context.Context) ([]string, error) {
	argv, err := shellx.NewArgv("resolvectl", "status")
	if err != nil {
		return nil, fmt.Errorf("%w: resolvectl: %w", ErrUtilityMissing, err)
	}
	output, err := shellx.OutputEx(ctx, r.config(), argv, r.envp())
	if err != nil {
		return nil, r.classify(err, false)
	}
	return netifaces.ResolvectlLinks(string(output)), nil
}

// run runs resolvectl with the given arguments.
func (r *Resolvectl) run(ctx context.Context, args ...string) error {
	argv, err := r.argv(args...)
	if err != nil {
		return err
	}
	if err := shellx.RunEx(ctx, r.config(), argv, r.envp()); err != nil {
		return r.classify(err, true)
	}
	return nil
}

// argv returns the argv to run resolvectl, possibly using sudo.
func (r *Resolvectl) argv(args ...string) (*shellx.Argv, error) {
	resolvectl, err := shellx.NewArgv("resolvectl", args...)
	if err != nil {
		return nil, fmt.Errorf("%w: resolvectl: %w", ErrUtilityMissing, err)
	}
	if !r.UseSudo {
		return resolvectl, nil
	}
	sudoCommand := r.SudoCommand
	if sudoCommand == "" {
		sudoCommand = DefaultSudoCommand
	}
	argv, err := shellx.ParseCommandLine(sudoCommand)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUtilityMissing, sudoCommand, err)
	}
	argv.Append(resolvectl.P)
	argv.Append(resolvectl.V...)
	return argv, nil
}

func (r *Resolvectl) config() *shellx.Config {
	return &shellx.Config{Logger: r.logger()}
}

// envp forces the C locale so that we can parse error messages.
func (r *Resolvectl) envp() *shellx.Envp {
	envp := &shellx.Envp{}
	envp.Append("LC_ALL", "C")
	envp.Append("SYSTEMD_PAGER", "")
	return envp
}

func (r *Resolvectl) logger() model.Logger {
	return model.ValidLoggerOrDefault(r.Logger)
}

// These are the stderr substrings indicating a permission issue.
var permissionDeniedMessages = []string{
	"permission denied",
	"access denied",
	"interactive authentication required",
	"a password is required",
	"operation not permitted",
}

// These are the stderr substrings indicating an invalid interface.
var invalidInterfaceMessages = []string{
	"unknown interface",
	"failed to resolve interface",
	"no such device",
	"invalid interface",
	"link not found",
}

// classify maps a command error to one of the errors of this package. The
// privileged argument tells whether the command changes the system configuration.
func (r *Resolvectl) classify(err error, privileged bool) error {
	if errors.Is(err, execabs.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrUtilityMissing, err)
	}
	var stderr string
	var execErr *shellx.ExecError
	if errors.As(err, &execErr) {
		stderr = strings.ToLower(execErr.Stderr)
	}
	for _, message := range permissionDeniedMessages {
		if strings.Contains(stderr, message) {
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
	}
	for _, message := range invalidInterfaceMessages {
		if strings.Contains(stderr, message) {
			return fmt.Errorf("%w: %w", ErrInvalidInterface, err)
		}
	}
	if privileged && !r.UseSudo && osGeteuid() != 0 {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}
