package main

import (
	"github.com/ooni/dnsbench/internal/cli/app"
	_ "github.com/ooni/dnsbench/internal/cli/about"
	_ "github.com/ooni/dnsbench/internal/cli/bench"
	_ "github.com/ooni/dnsbench/internal/cli/history"
	_ "github.com/ooni/dnsbench/internal/cli/menu"
	_ "github.com/ooni/dnsbench/internal/cli/revert"
	"github.com/ooni/dnsbench/internal/cli/root"
	_ "github.com/ooni/dnsbench/internal/cli/run"
	_ "github.com/ooni/dnsbench/internal/cli/version"
)

func main() {
	root.Cmd.FatalIfError(app.Run(), "")
}
