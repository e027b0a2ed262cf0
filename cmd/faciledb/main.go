// Command faciledb is a small inspection CLI over the pkg/faciledb public
// API, standing in for the original C project's test driver
// (src/test/test_faciledb_main.c). It is not part of the storage engine
// itself: it exists for manual, offline probing of a set/index pair and
// carries no invariants of its own.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	faciledberrors "github.com/Mutationeme/faciledb/pkg/errors"
	"github.com/Mutationeme/faciledb/pkg/faciledb"
	"github.com/Mutationeme/faciledb/pkg/options"
)

// Exit codes distinguish the broad error kinds pkg/errors classifies, so a
// calling script can branch without scraping stderr text.
const (
	exitOK = iota
	exitInternal
	exitNotReady
	exitInvalidInput
	exitIndexError
	exitStorageError
)

// diagnose prints err with whatever structured context pkg/errors recovered
// for it and returns the process exit code that context maps to.
func diagnose(err error) int {
	if err == nil {
		return exitOK
	}

	code := exitInternal
	switch {
	case faciledberrors.IsNotReadyError(err):
		code = exitNotReady
	case faciledberrors.IsValidationError(err):
		code = exitInvalidInput
	case faciledberrors.IsIndexError(err):
		code = exitIndexError
	case faciledberrors.IsStorageError(err):
		code = exitStorageError
	}

	fmt.Fprintf(os.Stderr, "faciledb: [%s] %v\n", faciledberrors.GetErrorCode(err), err)
	if ve, ok := faciledberrors.AsValidationError(err); ok {
		fmt.Fprintf(os.Stderr, "  field=%q rule=%q provided=%v expected=%v\n", ve.Field(), ve.Rule(), ve.Provided(), ve.Expected())
	}
	if ie, ok := faciledberrors.AsIndexError(err); ok {
		fmt.Fprintf(os.Stderr, "  indexKey=%q operation=%q nodeTag=%d\n", ie.IndexKey(), ie.Operation(), ie.NodeTag())
	}
	for k, v := range faciledberrors.GetErrorDetails(err) {
		fmt.Fprintf(os.Stderr, "  %s=%v\n", k, v)
	}

	return code
}

// cli is the root command set. Every subcommand shares the same data
// directory and index configuration, so both live here rather than on
// each subcommand individually.
type cli struct {
	Directory  string `help:"Base data directory." default:"./data" short:"d"`
	IndexOrder int    `help:"B+-tree order for newly created indexes." default:"64"`
	NoIndex    bool   `help:"Disable the secondary-index subsystem for this invocation."`

	Insert insertCmd `cmd:"" help:"Insert a single-record data item into a set."`
	Search searchCmd `cmd:"" help:"Search a set for records matching a probe."`
	Delete deleteCmd `cmd:"" help:"Delete every data item matching a probe."`
	Index  indexCmd  `cmd:"" help:"Build a secondary index over a record key."`
}

func (c *cli) open() (*faciledb.Instance, error) {
	return faciledb.Open(
		options.WithDirectory(c.Directory),
		options.WithIndexEnabled(!c.NoIndex),
		options.WithIndexOrder(c.IndexOrder),
	)
}

func main() {
	var c cli
	ktx := kong.Parse(&c,
		kong.Name("faciledb"),
		kong.Description("Inspect and drive a FacileDB data directory."),
		kong.UsageOnError(),
	)

	db, err := c.open()
	if err != nil {
		os.Exit(diagnose(err))
	}
	defer db.Close()

	if err := ktx.Run(db); err != nil {
		os.Exit(diagnose(err))
	}
}
