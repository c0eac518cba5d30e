package commands

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"thmlconverter/static"
)

// ExportResources is "export" command body.
func ExportResources(ctx *cli.Context) error {

	const (
		errPrefix = "export: "
		errCode   = 1
	)

	dir := ctx.Args().Get(0)
	if len(dir) == 0 {
		return cli.Exit(errors.New(errPrefix+"no destination directory has been specified"), errCode)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return cli.Exit(errors.New(errPrefix+"destination must be an existing directory"), errCode)
	}

	for _, name := range []string{"configuration.toml", "stylesheet.css"} {
		data, err := static.Asset(name)
		if err != nil {
			return cli.Exit(errors.Wrapf(err, "%sunable to get built-in resource %s", errPrefix, name), errCode)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return cli.Exit(errors.Wrapf(err, "%sunable to export %s", errPrefix, name), errCode)
		}
	}
	return nil
}
