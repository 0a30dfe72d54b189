package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	hfs "github.com/dsoprea/go-hfs"
)

type parameters struct {
	NoWrite     bool `short:"n" long:"no-write" description:"Never write; report only"`
	AutoYes     bool `short:"a" long:"auto-yes" description:"Apply every repairable fix automatically"`
	AutoYesAlt1 bool `short:"p" description:"Alias for -a"`
	AutoYesAlt2 bool `short:"y" description:"Alias for -a"`
	Force       bool `short:"f" long:"force" description:"Check even if the volume appears clean"`
	Interactive bool `short:"r" long:"interactive" description:"Prompt before every repair"`
	Verbose     bool `short:"v" long:"verbose" description:"Verbose output"`

	Positional struct {
		Device string `positional-arg-name:"device" required:"true"`
	} `positional-args:"yes"`
}

var arguments = new(parameters)

type lineReporter struct {
	verbose bool
}

func (r *lineReporter) Issue(rep hfs.Report) {
	fmt.Println(rep.String())
}

func (r *lineReporter) PhaseStarted(phase string) {
	if r.verbose {
		fmt.Printf("== phase: %s ==\n", phase)
	}
}

func (r *lineReporter) Summary(outcome *hfs.RunSummary) {
	fmt.Printf("%d issue(s), exit code %d\n", len(outcome.Issues), outcome.ExitCode())
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

	mode := os.O_RDONLY
	if !arguments.NoWrite {
		mode = os.O_RDWR
	}

	f, err := os.OpenFile(arguments.Positional.Device, mode, 0)
	log.PanicIf(err)

	defer f.Close()

	fi, err := f.Stat()
	log.PanicIf(err)

	v, err := hfs.OpenVolume(f, fi.Size(), 0)
	log.PanicIf(err)

	rc := &hfs.RunContext{
		ReadOnly:    arguments.NoWrite,
		AutoRepair:  arguments.AutoYes || arguments.AutoYesAlt1 || arguments.AutoYesAlt2,
		Interactive: arguments.Interactive,
		Force:       arguments.Force,
		Verbose:     arguments.Verbose,
		Reporter:    &lineReporter{verbose: arguments.Verbose},
	}

	if arguments.Interactive {
		stdin := bufio.NewReader(os.Stdin)
		rc.PromptFunc = func(description string) bool {
			fmt.Printf("%s - repair? [y/N] ", description)
			line, _ := stdin.ReadString('\n')
			return line == "y\n" || line == "Y\n"
		}
	}

	summary := hfs.Check(v, rc, time.Now())
	os.Exit(int(summary.ExitCode()))
}
