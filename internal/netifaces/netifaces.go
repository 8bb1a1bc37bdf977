// Package netifaces enumerates the network interfaces we can configure.
package netifaces

import (
	"bufio"
	"net"
	"strings"
)

// netInterfaces allows to mock net.Interfaces in tests.
var netInterfaces = net.Interfaces

// List returns the names of the non-loopback network interfaces.
func List() ([]string, error) {
	ifaces, err := netInterfaces()
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Name == "lo" {
			continue
		}
		out = append(out, iface.Name)
	}
	return out, nil
}

// ResolvectlLinks parses the output of `resolvectl status` and returns the
// name of each link. The relevant lines look like `Link 2 (eth0)`. When the
// name is missing, we return the link index, which resolvectl also accepts.
func ResolvectlLinks(output string) []string {
	out := []string{}
	seen := map[string]bool{}
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "Link" {
			continue
		}
		name := fields[1]
		if len(fields) >= 3 {
			if v := strings.Trim(fields[2], "()"); v != "" {
				name = v
			}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
