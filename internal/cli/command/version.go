package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/garagebook-go/internal/infra/buildinfo"
)

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			if machineReadable(c) {
				return render(c, buildinfo.Get())
			}
			info := buildinfo.Get()
			fmt.Fprintf(c.App.Writer, "%s %s\n", AppName, buildinfo.String())
			fmt.Fprintf(c.App.Writer, "%s %s\n", info.GoVersion, info.Platform)
			return nil
		},
	}
}
