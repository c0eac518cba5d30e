package commands

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"thmlconverter/state"
)

// DumpConfig is "dumpconfig" command body.
func DumpConfig(ctx *cli.Context) error {

	const (
		errPrefix = "dumpconfig: "
		errCode   = 1
	)

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)

	data, err := env.Cfg.GetBytes()
	if err != nil {
		return cli.Exit(errors.Wrapf(err, "%sunable to serialize configuration", errPrefix), errCode)
	}

	fname := ctx.Args().Get(0)
	if len(fname) == 0 {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return cli.Exit(errors.Wrapf(err, "%sunable to write configuration", errPrefix), errCode)
	}
	return nil
}
