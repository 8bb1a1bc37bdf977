package applier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/dnsbench/internal/model"
	"github.com/ooni/dnsbench/internal/shellx/shellxtesting"
	"golang.org/x/sys/execabs"
)

// lookPathSuccess is a LookPath that finds every command in /usr/bin.
func lookPathSuccess(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

// withEuid runs the test using the given effective user ID.
func withEuid(t *testing.T, euid int) {
	prev := osGeteuid
	osGeteuid = func() int {
		return euid
	}
	t.Cleanup(func() {
		osGeteuid = prev
	})
}

func TestResolvectlApply(t *testing.T) {
	t.Run("runs resolvectl dns using sudo", func(t *testing.T) {
		var commands [][]string
		var env []string
		lib := &shellxtesting.Library{
			MockLookPath: lookPathSuccess,
			MockCmdRun: func(c *execabs.Cmd) error {
				commands = append(commands, shellxtesting.MustArgv(c))
				env = shellxtesting.RemoveCommonEnvironmentVariables(c)
				return nil
			},
		}
		shellxtesting.WithCustomLibrary(lib, func() {
			r := &Resolvectl{Logger: model.DiscardLogger, UseSudo: true}
			if err := r.Apply(context.Background(), "eth0", []string{"8.8.8.8", "1.1.1.1"}); err != nil {
				t.Fatal(err)
			}
		})
		expect := [][]string{{"/usr/bin/sudo", "/usr/bin/resolvectl", "dns", "eth0", "8.8.8.8", "1.1.1.1"}}
		if diff := cmp.Diff(expect, commands); diff != "" {
			t.Fatal(diff)
		}
		var foundLocale bool
		for _, entry := range env {
			foundLocale = foundLocale || entry == "LC_ALL=C"
		}
		if !foundLocale {
			t.Fatal("expected LC_ALL=C in the environment", env)
		}
	})

	t.Run("runs resolvectl dns with a custom sudo command", func(t *testing.T) {
		var commands [][]string
		lib := &shellxtesting.Library{
			MockLookPath: lookPathSuccess,
			MockCmdRun: func(c *execabs.Cmd) error {
				commands = append(commands, shellxtesting.MustArgv(c))
				return nil
			},
		}
		shellxtesting.WithCustomLibrary(lib, func() {
			r := &Resolvectl{UseSudo: true, SudoCommand: "doas -n"}
			if err := r.Apply(context.Background(), "eth0", []string{"9.9.9.9"}); err != nil {
				t.Fatal(err)
			}
		})
		expect := [][]string{{"/usr/bin/doas", "-n", "/usr/bin/resolvectl", "dns", "eth0", "9.9.9.9"}}
		if diff := cmp.Diff(expect, commands); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("runs resolvectl dns without sudo", func(t *testing.T) {
		var commands [][]string
		lib := &shellxtesting.Library{
			MockLookPath: lookPathSuccess,
			MockCmdRun: func(c *execabs.Cmd) error {
				commands = append(commands, shellxtesting.MustArgv(c))
				return nil
			},
		}
		shellxtesting.WithCustomLibrary(lib, func() {
			r := &Resolvectl{}
			if err := r.Apply(context.Background(), "wlan0", []string{"2606:4700:4700::1111"}); err != nil {
				t.Fatal(err)
			}
		})
		expect := [][]string{{"/usr/bin/resolvectl", "dns", "wlan0", "2606:4700:4700::1111"}}
		if diff := cmp.Diff(expect, commands); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("rejects invalid arguments without running anything", func(t *testing.T) {
		lib := &shellxtesting.Library{
			MockLookPath: func(file string) (string, error) {
				t.Fatal("should not be called")
				return "", nil
			},
		}
		cases := []struct {
			name      string
			iface     string
			resolvers []string
			expect    error
		}{
			{"empty interface", "", []string{"1.1.1.1"}, ErrInvalidInterface},
			{"no resolvers", "eth0", nil, ErrConfiguration},
			{"invalid resolver", "eth0", []string{"dns.google"}, ErrConfiguration},
		}
		shellxtesting.WithCustomLibrary(lib, func() {
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					r := &Resolvectl{UseSudo: true}
					err := r.Apply(context.Background(), tc.iface, tc.resolvers)
					if !errors.Is(err, tc.expect) {
						t.Fatal("unexpected error", err)
					}
				})
			}
		})
	})

	t.Run("maps failures", func(t *testing.T) {
		cases := []struct {
			name    string
			useSudo bool
			euid    int
			lookup  error
			stderr  string
			expect  error
			exclude error
		}{{
			name:    "missing resolvectl",
			useSudo: true,
			lookup:  execabs.ErrNotFound,
			expect:  ErrUtilityMissing,
		}, {
			name:    "access denied",
			useSudo: true,
			stderr:  "Failed to set DNS configuration: Access denied\n",
			expect:  ErrPermissionDenied,
		}, {
			name:    "sudo wants a password",
			useSudo: true,
			stderr:  "sudo: a password is required\n",
			expect:  ErrPermissionDenied,
		}, {
			name:    "unknown interface",
			useSudo: true,
			stderr:  "Failed to resolve interface \"eth9\": No such device\n",
			expect:  ErrInvalidInterface,
		}, {
			name:    "non-root without sudo",
			useSudo: false,
			euid:    1000,
			stderr:  "something happened\n",
			expect:  ErrPermissionDenied,
		}, {
			name:    "generic failure as root",
			useSudo: false,
			euid:    0,
			stderr:  "something happened\n",
			expect:  ErrConfiguration,
			exclude: ErrPermissionDenied,
		}}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				withEuid(t, tc.euid)
				lib := &shellxtesting.Library{
					MockLookPath: func(file string) (string, error) {
						if tc.lookup != nil && file == "resolvectl" {
							return "", tc.lookup
						}
						return lookPathSuccess(file)
					},
					MockCmdRun: func(c *execabs.Cmd) error {
						c.Stderr.Write([]byte(tc.stderr))
						return errors.New("exit status 1")
					},
				}
				var err error
				shellxtesting.WithCustomLibrary(lib, func() {
					r := &Resolvectl{UseSudo: tc.useSudo}
					err = r.Apply(context.Background(), "eth0", []string{"1.1.1.1"})
				})
				if !errors.Is(err, tc.expect) {
					t.Fatal("unexpected error", err)
				}
				if !errors.Is(err, ErrConfiguration) {
					t.Fatal("every error should wrap ErrConfiguration", err)
				}
				if tc.exclude != nil && errors.Is(err, tc.exclude) {
					t.Fatal("unexpected error", err)
				}
			})
		}
	})
}

func TestResolvectlRevert(t *testing.T) {
	t.Run("reverts every interface", func(t *testing.T) {
		var commands [][]string
		lib := &shellxtesting.Library{
			MockLookPath: lookPathSuccess,
			MockCmdRun: func(c *execabs.Cmd) error {
				commands = append(commands, shellxtesting.MustArgv(c))
				return nil
			},
		}
		shellxtesting.WithCustomLibrary(lib, func() {
			r := &Resolvectl{UseSudo: true}
			if err := r.Revert(context.Background(), []string{"eth0", "wlan0"}); err != nil {
				t.Fatal(err)
			}
		})
		expect := [][]string{
			{"/usr/bin/sudo", "/usr/bin/resolvectl", "revert", "eth0"},
			{"/usr/bin/sudo", "/usr/bin/resolvectl", "revert", "wlan0"},
		}
		if diff := cmp.Diff(expect, commands); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("with no interfaces", func(t *testing.T) {
		r := &Resolvectl{UseSudo: true}
		if err := r.Revert(context.Background(), nil); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("partial failure", func(t *testing.T) {
		var attempts int
		lib := &shellxtesting.Library{
			MockLookPath: lookPathSuccess,
			MockCmdRun: func(c *execabs.Cmd) error {
				attempts++
				argv := shellxtesting.MustArgv(c)
				if argv[len(argv)-1] == "eth1" {
					c.Stderr.Write([]byte("Failed to resolve interface \"eth1\": No such device\n"))
					return errors.New("exit status 1")
				}
				return nil
			},
		}
		var err error
		shellxtesting.WithCustomLibrary(lib, func() {
			r := &Resolvectl{UseSudo: true}
			err = r.Revert(context.Background(), []string{"eth0", "eth1", "", "wlan0"})
		})
		if attempts != 3 {
			t.Fatal("expected to attempt every valid interface", attempts)
		}
		var revertErr *RevertError
		if !errors.As(err, &revertErr) {
			t.Fatal("expected a RevertError", err)
		}
		if len(revertErr.Failed) != 2 {
			t.Fatal("unexpected failures", revertErr.Failed)
		}
		if !errors.Is(revertErr.Failed["eth1"], ErrInvalidInterface) {
			t.Fatal("unexpected eth1 error", revertErr.Failed["eth1"])
		}
		if !errors.Is(revertErr.Failed[""], ErrInvalidInterface) {
			t.Fatal("unexpected empty name error", revertErr.Failed[""])
		}
		if !errors.Is(err, ErrInvalidInterface) {
			t.Fatal("RevertError should unwrap to the interface errors")
		}
		if !strings.HasPrefix(err.Error(), "applier: cannot revert 2 interface(s): : ") {
			t.Fatal("unexpected error string", err.Error())
		}
	})
}

func TestResolvectlLinks(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		var argv []string
		lib := &shellxtesting.Library{
			MockLookPath: lookPathSuccess,
			MockCmdOutput: func(c *execabs.Cmd) ([]byte, error) {
				argv = shellxtesting.MustArgv(c)
				return []byte("Global\nLink 2 (enp0s3)\n  Current Scopes: DNS\nLink 3 (wlan0)\n"), nil
			},
		}
		var links []string
		var err error
		shellxtesting.WithCustomLibrary(lib, func() {
			r := &Resolvectl{UseSudo: true}
			links, err = r.Links(context.Background())
		})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"/usr/bin/resolvectl", "status"}, argv); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff([]string{"enp0s3", "wlan0"}, links); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("with missing resolvectl", func(t *testing.T) {
		lib := &shellxtesting.Library{
			MockLookPath: func(file string) (string, error) {
				return "", execabs.ErrNotFound
			},
		}
		var err error
		shellxtesting.WithCustomLibrary(lib, func() {
			r := &Resolvectl{}
			_, err = r.Links(context.Background())
		})
		if !errors.Is(err, ErrUtilityMissing) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("when the command fails", func(t *testing.T) {
		withEuid(t, 1000)
		lib := &shellxtesting.Library{
			MockLookPath: lookPathSuccess,
			MockCmdOutput: func(c *execabs.Cmd) ([]byte, error) {
				return nil, errors.New("exit status 1")
			},
		}
		var err error
		shellxtesting.WithCustomLibrary(lib, func() {
			r := &Resolvectl{}
			_, err = r.Links(context.Background())
		})
		if !errors.Is(err, ErrConfiguration) || errors.Is(err, ErrPermissionDenied) {
			t.Fatal("unexpected error", err)
		}
	})
}
