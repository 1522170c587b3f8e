package studydb

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tractml/tractml/tractometry"
)

// RunStudyCommand handles the study catalog subcommand dispatching for the
// tract-study binary.
func RunStudyCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintStudyHelp()
		os.Exit(1)
	}

	action := args[0]

	switch action {
	case "import":
		handleImport(args[1:], dbPath)

	case "list":
		handleList(dbPath)

	case "export":
		handleExport(args[1:], dbPath)

	case "delete":
		handleDelete(args[1:], dbPath)

	case "migrate":
		handleMigrate(args[1:], dbPath)

	case "help":
		PrintStudyHelp()

	default:
		fmt.Printf("Unknown study action: %s\n\n", action)
		PrintStudyHelp()
		os.Exit(1)
	}
}

// handleImport reads a working directory and stores it as a named study.
// The subjects table is optional; a nodes table is required.
func handleImport(args []string, dbPath string) {
	if len(args) < 2 {
		log.Fatal("Usage: tract-study import <name> <workdir>")
	}
	name, workdir := args[0], args[1]

	nodes, err := tractometry.ReadNodesFile(filepath.Join(workdir, tractometry.DefaultNodesFile))
	if err != nil {
		log.Fatalf("Failed to read nodes table: %v", err)
	}

	var subjects *tractometry.PhenotypeTable
	subjectsPath := filepath.Join(workdir, tractometry.DefaultSubjectsFile)
	if _, err := os.Stat(subjectsPath); err == nil {
		ph, err := tractometry.ReadPhenotypeFile(subjectsPath, "")
		if err != nil {
			log.Fatalf("Failed to read subjects table: %v", err)
		}
		subjects = ph
	}

	database, err := Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open study database: %v", err)
	}
	defer database.Close()

	study, err := database.ImportStudy(name, nodes, subjects)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	log.Printf("Imported study %q as %s (%d node rows, %d subjects)",
		study.Name, study.ID, study.NodeRows, study.Subjects)
}

// handleList prints every catalog entry.
func handleList(dbPath string) {
	database, err := Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open study database: %v", err)
	}
	defer database.Close()

	studies, err := database.ListStudies()
	if err != nil {
		log.Fatalf("Failed to list studies: %v", err)
	}

	if len(studies) == 0 {
		fmt.Println("No studies imported")
		return
	}

	for _, s := range studies {
		fmt.Printf("%s  %-20s  metrics=%s  rows=%d  subjects=%d  imported=%s\n",
			s.ID, s.Name, strings.Join(s.Metrics, ","), s.NodeRows, s.Subjects,
			s.ImportedAt.Format(time.RFC3339))
	}
}

// handleExport writes a stored study back out as a working directory.
func handleExport(args []string, dbPath string) {
	if len(args) < 2 {
		log.Fatal("Usage: tract-study export <study> <outdir>")
	}
	ref, outDir := args[0], args[1]

	database, err := Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open study database: %v", err)
	}
	defer database.Close()

	study, err := database.GetStudy(ref)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	nodes, err := database.ExportNodes(study.ID)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	nodesPath := filepath.Join(outDir, tractometry.DefaultNodesFile)
	if err := nodes.WriteFile(nodesPath); err != nil {
		log.Fatalf("Failed to write nodes table: %v", err)
	}
	log.Printf("Wrote %s", nodesPath)

	if study.IndexCol != nil {
		subjects, err := database.ExportSubjects(study.ID)
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		subjectsPath := filepath.Join(outDir, tractometry.DefaultSubjectsFile)
		if err := subjects.WriteFile(subjectsPath); err != nil {
			log.Fatalf("Failed to write subjects table: %v", err)
		}
		log.Printf("Wrote %s", subjectsPath)
	}
}

// handleDelete removes a study after confirmation.
func handleDelete(args []string, dbPath string) {
	if len(args) < 1 {
		log.Fatal("Usage: tract-study delete <study>")
	}
	ref := args[0]

	database, err := Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open study database: %v", err)
	}
	defer database.Close()

	study, err := database.GetStudy(ref)
	if err != nil {
		log.Fatalf("Delete failed: %v", err)
	}

	fmt.Printf("Deleting study %q (%d node rows). Continue? [y/N]: ", study.Name, study.NodeRows)
	var response string
	fmt.Scanln(&response)
	if response != "y" && response != "Y" {
		log.Println("Aborted")
		os.Exit(0)
	}

	if err := database.DeleteStudy(study.ID); err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	log.Printf("✓ Deleted study %q", study.Name)
}

// handleMigrate runs schema migrations without the catalog's auto-migrate,
// so down and status see the database as it is.
func handleMigrate(args []string, dbPath string) {
	if len(args) < 1 {
		log.Fatal("Usage: tract-study migrate <up|down|status>")
	}

	database, err := OpenRaw(dbPath)
	if err != nil {
		log.Fatalf("Failed to open study database: %v", err)
	}
	defer database.Close()

	switch args[0] {
	case "up":
		log.Printf("Running migrations...")
		if err := database.MigrateUp(); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("✓ All migrations applied successfully")

	case "down":
		log.Printf("Rolling back one migration...")
		if err := database.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("✓ Migration rolled back successfully")

	case "status":
		version, dirty, err := database.MigrateVersion()
		if err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
		fmt.Println("=== Migration Status ===")
		fmt.Printf("Current version: %d\n", version)
		fmt.Printf("Dirty: %v\n", dirty)
		return

	default:
		log.Fatalf("Unknown migrate action: %s", args[0])
	}

	version, dirty, _ := database.MigrateVersion()
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

// PrintStudyHelp displays the help message for the tract-study binary.
func PrintStudyHelp() {
	fmt.Println("Study Catalog Commands")
	fmt.Println()
	fmt.Println("Usage: tract-study <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  import <name> <workdir>   Import nodes.csv (+ subjects.csv if present) as a study")
	fmt.Println("  list                      List imported studies")
	fmt.Println("  export <study> <outdir>   Write a study back out as CSV files")
	fmt.Println("  delete <study>            Delete a study and all of its rows")
	fmt.Println("  migrate <up|down|status>  Manage the catalog schema")
	fmt.Println("  gen <workdir>             Generate a synthetic study working directory")
	fmt.Println("  help                      Show this help message")
	fmt.Println()
	fmt.Println("Studies are addressed by UUID or by name.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  tract-study import pilot-2024 ./studies/pilot")
	fmt.Println("  tract-study list")
	fmt.Println("  tract-study export pilot-2024 ./export")
	fmt.Println("  tract-study migrate status")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --db-path <path>    Path to database file (default: studies.db)")
}
