// Command tract-report renders per-tract profile curves from a long-format
// nodes table: an interactive HTML report, PNG images, or both.
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/tractml/tractml/internal/report"
	"github.com/tractml/tractml/tractometry"
)

func main() {
	nodesFile := flag.String("nodes", "nodes.csv", "Long-format nodes CSV to summarise")
	metricsFlag := flag.String("metrics", "", "Comma-separated metrics to include (default: all)")
	htmlOut := flag.String("html", "tract-report.html", "HTML report output path (empty to skip)")
	pngDir := flag.String("png-dir", "", "Directory for per-profile PNG plots (empty to skip)")
	flag.Parse()

	if *htmlOut == "" && *pngDir == "" {
		log.Fatal("Nothing to do: both -html and -png-dir are empty")
	}

	var metrics []string
	for _, m := range strings.Split(*metricsFlag, ",") {
		if m = strings.TrimSpace(m); m != "" {
			metrics = append(metrics, m)
		}
	}

	table, err := tractometry.ReadNodesFile(*nodesFile)
	if err != nil {
		log.Fatalf("Failed to read nodes table: %v", err)
	}
	log.Printf("Read %d rows covering %d tracts", len(table.Rows), len(table.Tracts()))

	profiles, err := report.Profiles(table, metrics)
	if err != nil {
		log.Fatalf("Failed to compute profiles: %v", err)
	}

	if *htmlOut != "" {
		if err := report.WriteHTMLReport(profiles, *htmlOut); err != nil {
			log.Fatalf("Failed to write HTML report: %v", err)
		}
		log.Printf("✓ Wrote %s", *htmlOut)
	}

	if *pngDir != "" {
		files, err := report.WritePNGPlots(profiles, *pngDir)
		if err != nil {
			log.Fatalf("Failed to write PNG plots: %v", err)
		}
		for _, f := range files {
			log.Printf("✓ Wrote %s", f)
		}
	}
}
