package main

import (
	"os"
	"time"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	hfs "github.com/dsoprea/go-hfs"
)

type parameters struct {
	Force         bool   `short:"f" long:"force" description:"Format even if the device already looks like a filesystem"`
	Label         string `short:"L" long:"label" description:"Volume name (parsed; FormatHFSPlus writes no volume name)" default:"Untitled"`
	Size          string `short:"s" long:"size" description:"Override the device size (e.g. 100M, 2G)"`
	Journaled     bool   `short:"j" long:"journaled" description:"Enable journaling (not yet wired into the on-disk layout)"`
	CaseSensitive bool   `short:"x" long:"case-sensitive" description:"Format as HFSX (case-sensitive)"`
	Verbose       bool   `short:"v" long:"verbose" description:"Verbose output"`

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

	deviceSize := fi.Size()
	if arguments.Size != "" {
		override, parseErr := humanize.ParseBytes(arguments.Size)
		log.PanicIf(parseErr)
		deviceSize = int64(override)
	}

	if !arguments.Force {
		if fsType, probeErr := hfs.Probe(f, deviceSize); probeErr == nil && fsType != hfs.FSUnknown {
			log.Panic(log.Errorf("device already contains a %s filesystem; use -f to overwrite", fsType))
		}
	}

	bio := hfs.NewBlockIO(f, deviceSize, 32)

	err = hfs.FormatHFSPlus(bio, deviceSize, arguments.CaseSensitive, time.Now())
	log.PanicIf(err)

	if arguments.Journaled {
		os.Stdout.WriteString("mkfs.hfsplus: note: journal creation is not yet wired into FormatHFSPlus\n")
	}

	if arguments.Verbose {
		os.Stdout.WriteString("mkfs.hfsplus: formatted " + arguments.Positional.Device + "\n")
	}
}
