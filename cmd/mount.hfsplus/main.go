package main

import (
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	hfs "github.com/dsoprea/go-hfs"
)

type parameters struct {
	ReadOnly  bool   `short:"r" description:"Mount read-only"`
	ReadWrite bool   `short:"w" description:"Mount read-write"`
	Options   string `short:"o" long:"options" description:"Mount options (passed through, unused by this engine)"`
	Verbose   bool   `short:"v" long:"verbose" description:"Verbose output"`

	Positional struct {
		Device     string `positional-arg-name:"device" required:"true"`
		Mountpoint string `positional-arg-name:"mountpoint" required:"true"`
	} `positional-args:"yes"`
}

var arguments = new(parameters)

// hostMount is the not-implemented extension point for the actual mount(2)
// syscall invocation; this engine only validates that the device is a
// mountable HFS+/HFSX volume and stops there (out of scope).
func hostMount(device, mountpoint string, readOnly bool) error {
	return &hfs.FormatError{Location: "mount", Reason: "host mount(2) invocation is not implemented by this engine"}
}

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

	f, err := os.Open(arguments.Positional.Device)
	log.PanicIf(err)

	defer f.Close()

	fi, err := f.Stat()
	log.PanicIf(err)

	fsType, err := hfs.Probe(f, fi.Size())
	log.PanicIf(err)

	if fsType != hfs.FSHFSPlus && fsType != hfs.FSHFSX {
		log.Panic(log.Errorf("%s is not an HFS+/HFSX volume", arguments.Positional.Device))
	}

	if arguments.Verbose {
		os.Stdout.WriteString("mount.hfsplus: verified " + arguments.Positional.Device + " as " + fsType.String() + "\n")
	}

	err = hostMount(arguments.Positional.Device, arguments.Positional.Mountpoint, arguments.ReadOnly && !arguments.ReadWrite)
	log.PanicIf(err)
}
