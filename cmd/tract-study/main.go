// Command tract-study manages the local catalog of imported tractometry
// studies.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/tractml/tractml/internal/studydb"
	"github.com/tractml/tractml/tractometry"
)

var dbPath = flag.String("db-path", "studies.db", "Path to database file")

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		studydb.PrintStudyHelp()
		os.Exit(1)
	}

	args := flag.Args()
	if args[0] == "gen" {
		handleGen(args[1:])
		return
	}

	studydb.RunStudyCommand(args, *dbPath)
}

// handleGen writes a synthetic demo study, so the import and report
// pipeline can be tried without real scan data.
func handleGen(args []string) {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	seed := fs.Int64("seed", 1, "Random seed")
	subjects := fs.Int("subjects", 8, "Number of subjects")
	nodes := fs.Int("nodes", 100, "Nodes per tract")
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("Usage: tract-study gen [options] <workdir>")
	}
	workdir := fs.Arg(0)

	gen := tractometry.NewGenerator(*seed)
	gen.Subjects = *subjects
	gen.Nodes = *nodes
	if err := gen.WriteStudy(workdir); err != nil {
		log.Fatalf("Failed to write study: %v", err)
	}
	log.Printf("✓ Wrote synthetic study (%d subjects, %d tracts) to %s",
		gen.Subjects, len(gen.Tracts), workdir)
}
