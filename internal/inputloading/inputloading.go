// Package inputloading loads the resolvers to benchmark.
package inputloading

import (
	"bufio"
	"io/fs"
	"net/netip"
	"os"
	"strings"

	"github.com/ooni/dnsbench/internal/model"
	"github.com/pkg/errors"
)

// openFn is the type of the function to open a file.
type openFn func(filepath string) (fs.File, error)

// osOpen adapts os.Open to openFn.
func osOpen(filepath string) (fs.File, error) {
	return os.Open(filepath)
}

// LoadResolvers reads the resolvers from the file at path, which contains
// one IP address per line. Blank lines and lines starting with `#` are
// ignored. Invalid addresses are logged and skipped. Duplicate addresses
// are skipped, keeping the first occurrence. An empty file is not an error.
func LoadResolvers(path string, logger model.Logger) ([]string, error) {
	return loadResolvers(path, model.ValidLoggerOrDefault(logger), osOpen)
}

func loadResolvers(path string, logger model.Logger, open openFn) ([]string, error) {
	lines, err := readfile(path, open)
	if err != nil {
		return nil, errors.Wrapf(err, "loading resolvers from %s", path)
	}
	out := []string{}
	seen := map[string]bool{}
	for _, line := range lines {
		addr, err := netip.ParseAddr(line)
		if err != nil {
			logger.Warnf("skipping invalid resolver address: %q", line)
			continue
		}
		resolver := addr.String()
		if seen[resolver] {
			logger.Debugf("skipping duplicate resolver: %s", resolver)
			continue
		}
		seen[resolver] = true
		out = append(out, resolver)
	}
	logger.Debugf("loaded %d resolvers from %s", len(out), path)
	return out, nil
}

// readfile returns the trimmed non-empty, non-comment lines of the file.
func readfile(filepath string, open openFn) ([]string, error) {
	filep, err := open(filepath)
	if err != nil {
		return nil, err
	}
	defer filep.Close()
	lines := []string{}
	scanner := bufio.NewScanner(filep)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
