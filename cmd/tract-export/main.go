// Command tract-export loads a tractometry study and writes the imputed
// feature matrix together with its column and group metadata, the hand-off
// format for fitting models outside this repository.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tractml/tractml/tractometry"
)

// Config holds configuration for the export run.
type Config struct {
	Workdir        string
	OutDir         string
	Metrics        string
	Targets        string
	LabelEncode    string
	IndexCol       string
	NodesFile      string
	SubjectsFile   string
	Impute         string
	FillEmpty      string
	Unsupervised   bool
	ConcatSessions bool
	WithSessions   bool
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.Workdir, "workdir", ".", "Study directory containing the nodes and subjects files")
	flag.StringVar(&cfg.OutDir, "out", "export", "Output directory for the exported matrix")
	flag.StringVar(&cfg.Metrics, "metrics", "", "Comma-separated metrics to keep (default: all)")
	flag.StringVar(&cfg.Targets, "targets", "", "Comma-separated phenotype columns to extract (default: all)")
	flag.StringVar(&cfg.LabelEncode, "label-encode", "", "Comma-separated target columns to label encode")
	flag.StringVar(&cfg.IndexCol, "index-col", "", "Subject identity column in the subjects file (default: subjectID)")
	flag.StringVar(&cfg.NodesFile, "nodes-file", "", "Nodes file name inside the study directory (default: nodes.csv)")
	flag.StringVar(&cfg.SubjectsFile, "subjects-file", "", "Subjects file name inside the study directory (default: subjects.csv)")
	flag.StringVar(&cfg.Impute, "impute", "mean", "Imputation strategy: mean or median")
	flag.StringVar(&cfg.FillEmpty, "fill-empty", "", "Fallback value for feature columns with no observations")
	flag.BoolVar(&cfg.Unsupervised, "unsupervised", false, "Skip the subjects file and target extraction")
	flag.BoolVar(&cfg.ConcatSessions, "concat-sessions", false, "Fold session IDs into subject IDs so each visit becomes a row")
	flag.BoolVar(&cfg.WithSessions, "sessions", false, "Include a sessionID column in the feature matrix")

	flag.Parse()

	return cfg
}

// splitList splits a comma-separated flag value into trimmed entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadOptions(cfg Config) (tractometry.Options, error) {
	strategy, err := tractometry.ParseStrategy(cfg.Impute)
	if err != nil {
		return tractometry.Options{}, err
	}

	opts := tractometry.Options{
		Metrics:              splitList(cfg.Metrics),
		TargetCols:           splitList(cfg.Targets),
		LabelEncodeCols:      splitList(cfg.LabelEncode),
		IndexCol:             cfg.IndexCol,
		NodesFile:            cfg.NodesFile,
		SubjectsFile:         cfg.SubjectsFile,
		Unsupervised:         cfg.Unsupervised,
		ConcatSubjectSession: cfg.ConcatSessions,
		ReturnSessions:       cfg.WithSessions,
		Strategy:             strategy,
	}

	if cfg.FillEmpty != "" {
		v, err := strconv.ParseFloat(cfg.FillEmpty, 64)
		if err != nil {
			return tractometry.Options{}, fmt.Errorf("invalid fill-empty value %q: %w", cfg.FillEmpty, err)
		}
		opts.FillEmpty = &v
	}

	return opts, nil
}

func main() {
	cfg := parseFlags()

	opts, err := loadOptions(cfg)
	if err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	ds, err := tractometry.Load(cfg.Workdir, opts)
	if err != nil {
		log.Fatalf("Failed to load study from %s: %v", cfg.Workdir, err)
	}
	rows, cols := ds.X.Dims()
	log.Printf("Loaded %d subjects x %d features in %d groups", rows, cols, len(ds.Groups))

	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	if err := writeFeatures(filepath.Join(cfg.OutDir, "features.csv"), ds, cfg.WithSessions); err != nil {
		log.Fatalf("Failed to write feature matrix: %v", err)
	}
	if err := writeJSON(filepath.Join(cfg.OutDir, "columns.json"), ds.Keys); err != nil {
		log.Fatalf("Failed to write column keys: %v", err)
	}
	if err := writeJSON(filepath.Join(cfg.OutDir, "groups.json"), ds.Groups); err != nil {
		log.Fatalf("Failed to write groups: %v", err)
	}

	if ds.Targets != nil {
		if err := writeTargets(filepath.Join(cfg.OutDir, "targets.csv"), ds); err != nil {
			log.Fatalf("Failed to write targets: %v", err)
		}
		if len(ds.Targets.Classes) > 0 {
			if err := writeJSON(filepath.Join(cfg.OutDir, "classes.json"), ds.Targets.Classes); err != nil {
				log.Fatalf("Failed to write class labels: %v", err)
			}
		}
	}

	log.Printf("✓ Exported study to %s", cfg.OutDir)
}

// writeFeatures writes the imputed matrix: one header of column keys, one
// row per subject.
func writeFeatures(path string, ds *tractometry.Dataset, withSessions bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"subjectID"}
	if withSessions && ds.Sessions != nil {
		header = append(header, "sessionID")
	}
	for _, k := range ds.Keys {
		header = append(header, k.String())
	}
	if err := w.Write(header); err != nil {
		return err
	}

	rows, cols := ds.X.Dims()
	for i := 0; i < rows; i++ {
		record := []string{ds.Subjects[i]}
		if withSessions && ds.Sessions != nil {
			record = append(record, ds.Sessions[i])
		}
		for j := 0; j < cols; j++ {
			record = append(record, strconv.FormatFloat(ds.X.At(i, j), 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// writeTargets writes the aligned numeric target matrix. Encoded columns
// hold label codes; the matching labels travel in classes.json.
func writeTargets(path string, ds *tractometry.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{"subjectID"}, ds.Targets.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}

	rows, cols := ds.Targets.Values.Dims()
	for i := 0; i < rows; i++ {
		record := []string{ds.Subjects[i]}
		for j := 0; j < cols; j++ {
			record = append(record, strconv.FormatFloat(ds.Targets.Values.At(i, j), 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
