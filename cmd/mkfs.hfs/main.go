package main

import (
	"os"
	"time"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	hfs "github.com/dsoprea/go-hfs"
)

type parameters struct {
	Force   bool   `short:"f" long:"force" description:"Format even if the device already looks like a filesystem"`
	Label    string `short:"L" long:"label" description:"Volume name" default:"Untitled"`
	LabelAlt string `short:"l" description:"Alias for -L"`
	Verbose  bool   `short:"v" long:"verbose" description:"Verbose output"`

	Positional struct {
		Device string `positional-arg-name:"device" required:"true"`
	} `positional-args:"yes"`
}

var arguments = new(parameters)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(int(hfs.ExitInternal))
		}
	}()

	p := flags.NewParser(arguments, flags.Default)

	if _, err := p.Parse(); err != nil {
		os.Exit(int(hfs.ExitUsage))
	}

	f, err := os.OpenFile(arguments.Positional.Device, os.O_RDWR, 0)
	log.PanicIf(err)

	defer f.Close()

	fi, err := f.Stat()
	log.PanicIf(err)

	if !arguments.Force {
		if fsType, probeErr := hfs.Probe(f, fi.Size()); probeErr == nil && fsType != hfs.FSUnknown {
			log.Panic(log.Errorf("device already contains a %s filesystem; use -f to overwrite", fsType))
		}
	}

	bio := hfs.NewBlockIO(f, fi.Size(), 32)

	label := arguments.Label
	if arguments.LabelAlt != "" {
		label = arguments.LabelAlt
	}

	err = hfs.FormatHFS(bio, fi.Size(), label, time.Now())
	log.PanicIf(err)

	if arguments.Verbose {
		os.Stdout.WriteString("mkfs.hfs: formatted " + arguments.Positional.Device + "\n")
	}
}
