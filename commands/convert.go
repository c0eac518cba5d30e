// Package commands has top level command drivers.
package commands

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"thmlconverter/archive"
	"thmlconverter/processor"
	"thmlconverter/state"
)

// Convert is "convert" command body.
func Convert(ctx *cli.Context) error {

	const (
		errPrefix = "convert: "
		errCode   = 1
	)

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)

	src := ctx.Args().Get(0)
	if len(src) == 0 {
		return cli.Exit(errors.New(errPrefix+"no input source has been specified"), errCode)
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return cli.Exit(errors.Wrapf(err, "%scleaning source path failed", errPrefix), errCode)
	}

	dst := ctx.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return cli.Exit(errors.Wrapf(err, "%sunable to get working directory", errPrefix), errCode)
		}
	} else if dst, err = filepath.Abs(dst); err != nil {
		return cli.Exit(errors.Wrapf(err, "%scleaning destination path failed", errPrefix), errCode)
	}

	format := processor.ParseFmtString(ctx.String("to"))
	if format == processor.UnsupportedOutputFmt {
		return cli.Exit(errors.New(errPrefix+"unsupported output format: "+ctx.String("to")), errCode)
	}

	p, err := processor.NewTHML(src, dst, ctx.Bool("nodirs"), ctx.Bool("ow"), format, env)
	if err != nil {
		return cli.Exit(errors.Wrapf(err, "%sunable to create processor", errPrefix), errCode)
	}
	defer func() {
		if err := p.Clean(); err != nil {
			env.Log.Error("Unable to cleanup intermediate results", zap.Error(err))
		}
	}()

	count, err := feedDocuments(p, env, src)
	if err != nil {
		return cli.Exit(errors.Wrapf(err, "%sprocessing failed", errPrefix), errCode)
	}
	env.Log.Info("Documents gathered", zap.String("source", src), zap.Int("count", count))

	if err := p.Process(); err != nil {
		return cli.Exit(errors.Wrapf(err, "%sprocessing failed", errPrefix), errCode)
	}

	fname, err := p.Save()
	if err != nil {
		return cli.Exit(errors.Wrapf(err, "%ssaving failed", errPrefix), errCode)
	}

	switch format {
	case processor.OEpub:
		err = p.FinalizeEPUB(fname)
	case processor.OXhtml:
		err = p.FinalizeXHTML(fname)
	}
	if err != nil {
		return cli.Exit(errors.Wrapf(err, "%sunable to finalize output", errPrefix), errCode)
	}

	if !env.Rpt.Empty() {
		env.Rpt.Dump(env.Log)
	}
	env.Log.Info("Conversion completed", zap.String("output", fname))
	return nil
}

// isTHML recognizes source documents by extension.
func isTHML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".thml", ".xml":
		return true
	default:
		return false
	}
}

// feedDocuments locates source documents (file, directory or ZIP archive)
// and feeds them to the processor in stable order. A single bad document is
// skipped with an error logged - unless the failure indicates an internal
// defect, which aborts everything.
func feedDocuments(p *processor.Processor, env *state.LocalEnv, src string) (int, error) {

	count := 0
	add := func(name string, r io.Reader) error {
		if err := p.AddDocument(name, r); err != nil {
			if errors.Is(err, processor.ErrConfiguration) {
				return err
			}
			env.Log.Error("Skipping document", zap.String("source", name), zap.Error(err))
			return nil
		}
		count++
		return nil
	}

	addFile := func(fname string) error {
		f, err := os.Open(fname)
		if err != nil {
			return errors.Wrapf(err, "unable to open %s", fname)
		}
		defer f.Close()
		return add(fname, f)
	}

	fi, err := os.Stat(src)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to access source %s", src)
	}

	switch {
	case fi.IsDir():
		err = filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.Mode().IsRegular() && isTHML(path) {
				return addFile(path)
			}
			return nil
		})
	case strings.EqualFold(filepath.Ext(src), ".zip"):
		err = archive.Walk(src, "", func(arch string, f *zip.File) error {
			if !isTHML(f.Name) {
				return nil
			}
			r, err := f.Open()
			if err != nil {
				return errors.Wrapf(err, "unable to open %s in %s", f.Name, arch)
			}
			defer r.Close()
			return add(arch+"/"+f.Name, r)
		})
	default:
		err = addFile(src)
	}
	if err != nil {
		return count, err
	}
	return count, nil
}
