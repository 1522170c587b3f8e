// Command beta-project maps a fitted coefficient vector back into tract
// space: it copies a study to a new directory with a synthetic beta_hat
// subject appended, ready for the usual profile tooling.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/tractml/tractml/tractometry"
)

func main() {
	betaFile := flag.String("beta", "", "File with one coefficient per line (required)")
	columnsFile := flag.String("columns", "", "JSON column keys matching the coefficients, as written by tract-export (required)")
	inDir := flag.String("in", "", "Input study directory (required)")
	outDir := flag.String("out", "", "Output study directory (required)")
	scale := flag.Bool("scale", false, "Rescale each profile to the observed metric's mean and spread")
	nodesIn := flag.String("nodes-in", "", "Nodes file name in the input study (default: nodes.csv)")
	subjectsIn := flag.String("subjects-in", "", "Subjects file name in the input study (default: subjects.csv)")
	nodesOut := flag.String("nodes-out", "", "Nodes file name in the output study (default: nodes.csv)")
	subjectsOut := flag.String("subjects-out", "", "Subjects file name in the output study (default: subjects.csv)")
	flag.Parse()

	if *betaFile == "" || *columnsFile == "" || *inDir == "" || *outDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	beta, err := readBeta(*betaFile)
	if err != nil {
		log.Fatalf("Failed to read coefficients: %v", err)
	}
	keys, err := readColumns(*columnsFile)
	if err != nil {
		log.Fatalf("Failed to read column keys: %v", err)
	}
	log.Printf("Projecting %d coefficients from %s", len(beta), *inDir)

	result, err := tractometry.ProjectCoefficients(beta, keys, *inDir, *outDir, tractometry.ProjectOptions{
		NodesIn:     *nodesIn,
		SubjectsIn:  *subjectsIn,
		NodesOut:    *nodesOut,
		SubjectsOut: *subjectsOut,
		Scale:       *scale,
	})
	if err != nil {
		log.Fatalf("Projection failed: %v", err)
	}

	log.Printf("✓ Wrote %s", result.NodesFile)
	log.Printf("✓ Wrote %s", result.SubjectsFile)
}

// readBeta parses a coefficient vector, one float per line. Blank lines
// are skipped.
func readBeta(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var beta []float64
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid coefficient %q: %w", line, s, err)
		}
		beta = append(beta, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(beta) == 0 {
		return nil, fmt.Errorf("no coefficients in %s", path)
	}
	return beta, nil
}

func readColumns(path string) ([]tractometry.ColumnKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var keys []tractometry.ColumnKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return keys, nil
}
