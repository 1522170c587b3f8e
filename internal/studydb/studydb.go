// Package studydb keeps a catalog of imported tractometry studies in a local
// sqlite file. Each import stores a long-format nodes table plus an optional
// subjects table under a fresh UUID, and either can be read back as the
// tractometry types, so the catalog is a drop-in alternative to a working
// directory of CSV files. Single writer, local file, no server.
package studydb

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tractml/tractml/tractometry"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the study database at path and applies any
// pending schema migrations.
func Open(path string) (*DB, error) {
	db, err := OpenRaw(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenRaw opens the database without touching the schema. The migrate
// subcommands use this so they can manage the schema themselves.
func OpenRaw(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open study database: %w", err)
	}

	// Cascading deletes from studies to its child tables need this per
	// connection; sqlite defaults it off.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// Study is one catalog entry.
type Study struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Metrics     []string  `json:"metrics"`
	IndexCol    *string   `json:"index_col"` // nil when imported without a subjects table
	HasSessions bool      `json:"has_sessions"`
	ImportedAt  time.Time `json:"imported_at"`
	NodeRows    int       `json:"node_rows"`
	Subjects    int       `json:"subjects"`
}

// ImportStudy stores a nodes table and an optional subjects table under a new
// study ID. The whole import commits atomically; names must be unique.
func (db *DB) ImportStudy(name string, nodes *tractometry.LongTable, subjects *tractometry.PhenotypeTable) (*Study, error) {
	if name == "" {
		return nil, fmt.Errorf("study name is required")
	}
	if nodes == nil || len(nodes.Rows) == 0 {
		return nil, fmt.Errorf("study %q has no node rows", name)
	}

	id := uuid.New().String()
	importedAt := time.Now()

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	hasSessions := 0
	if nodes.HasSessions {
		hasSessions = 1
	}
	var indexCol *string
	if subjects != nil {
		indexCol = &subjects.IndexCol
	}

	if _, err := tx.Exec(
		`INSERT INTO studies (id, name, index_col, has_sessions, imported_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, indexCol, hasSessions, importedAt.Unix(),
	); err != nil {
		return nil, fmt.Errorf("failed to create study %q: %w", name, err)
	}

	for ord, metric := range nodes.Metrics {
		if _, err := tx.Exec(
			`INSERT INTO study_metrics (study_id, ord, metric) VALUES (?, ?, ?)`,
			id, ord, metric,
		); err != nil {
			return nil, fmt.Errorf("failed to store metrics: %w", err)
		}
	}

	insertNode, err := tx.Prepare(`
		INSERT INTO study_nodes (
			study_id, row_ord, subject_id, session_id, tract_id, node_id, metric_ord, value
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer insertNode.Close()

	for rowOrd, row := range nodes.Rows {
		if len(row.Values) != len(nodes.Metrics) {
			return nil, fmt.Errorf("node row %d has %d values, want %d", rowOrd, len(row.Values), len(nodes.Metrics))
		}
		for metricOrd, value := range row.Values {
			if _, err := insertNode.Exec(
				id, rowOrd, row.Subject, row.Session, row.Tract, row.Node,
				metricOrd, nullableValue(value),
			); err != nil {
				return nil, fmt.Errorf("failed to store node row %d: %w", rowOrd, err)
			}
		}
	}

	subjectCount := 0
	if subjects != nil {
		subjectCount = len(subjects.Index)

		for ord, field := range subjects.Columns {
			if _, err := tx.Exec(
				`INSERT INTO study_fields (study_id, ord, field) VALUES (?, ?, ?)`,
				id, ord, field,
			); err != nil {
				return nil, fmt.Errorf("failed to store subject fields: %w", err)
			}
		}

		insertCell, err := tx.Prepare(`
			INSERT INTO study_phenotypes (study_id, row_ord, field_ord, value) VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare phenotype insert: %w", err)
		}
		defer insertCell.Close()

		for rowOrd, subject := range subjects.Index {
			if _, err := tx.Exec(
				`INSERT INTO study_subjects (study_id, row_ord, subject_id) VALUES (?, ?, ?)`,
				id, rowOrd, subject,
			); err != nil {
				return nil, fmt.Errorf("failed to store subject %q: %w", subject, err)
			}
			for fieldOrd, value := range subjects.Rows[rowOrd] {
				if _, err := insertCell.Exec(id, rowOrd, fieldOrd, value); err != nil {
					return nil, fmt.Errorf("failed to store phenotype row %d: %w", rowOrd, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	return &Study{
		ID:          id,
		Name:        name,
		Metrics:     append([]string(nil), nodes.Metrics...),
		IndexCol:    indexCol,
		HasSessions: nodes.HasSessions,
		ImportedAt:  importedAt,
		NodeRows:    len(nodes.Rows),
		Subjects:    subjectCount,
	}, nil
}

// NaN cells are stored as NULL so SQL aggregates skip them.
func nullableValue(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

const studyColumns = `
	s.id, s.name, s.index_col, s.has_sessions, s.imported_at,
	(SELECT COUNT(DISTINCT n.row_ord) FROM study_nodes n WHERE n.study_id = s.id),
	(SELECT COUNT(*) FROM study_subjects p WHERE p.study_id = s.id)
`

func scanStudy(row interface{ Scan(...interface{}) error }) (*Study, error) {
	var study Study
	var hasSessions int
	var importedAtUnix int64

	err := row.Scan(
		&study.ID,
		&study.Name,
		&study.IndexCol,
		&hasSessions,
		&importedAtUnix,
		&study.NodeRows,
		&study.Subjects,
	)
	if err != nil {
		return nil, err
	}

	study.HasSessions = hasSessions == 1
	study.ImportedAt = time.Unix(importedAtUnix, 0)
	return &study, nil
}

// GetStudy retrieves a study by ID or by name.
func (db *DB) GetStudy(ref string) (*Study, error) {
	query := `SELECT ` + studyColumns + ` FROM studies s WHERE s.id = ? OR s.name = ?`

	study, err := scanStudy(db.QueryRow(query, ref, ref))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("study %q not found", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study: %w", err)
	}

	study.Metrics, err = db.studyMetrics(study.ID)
	if err != nil {
		return nil, err
	}
	return study, nil
}

// ListStudies retrieves all studies in import order.
func (db *DB) ListStudies() ([]Study, error) {
	query := `SELECT ` + studyColumns + ` FROM studies s ORDER BY s.imported_at ASC, s.name ASC`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query studies: %w", err)
	}
	defer rows.Close()

	var studies []Study
	for rows.Next() {
		study, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}
		studies = append(studies, *study)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating studies: %w", err)
	}

	for i := range studies {
		studies[i].Metrics, err = db.studyMetrics(studies[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return studies, nil
}

func (db *DB) studyMetrics(id string) ([]string, error) {
	rows, err := db.Query(`SELECT metric FROM study_metrics WHERE study_id = ? ORDER BY ord ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query study metrics: %w", err)
	}
	defer rows.Close()

	var metrics []string
	for rows.Next() {
		var metric string
		if err := rows.Scan(&metric); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, metric)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}
	return metrics, nil
}

func (db *DB) studyFields(id string) ([]string, error) {
	rows, err := db.Query(`SELECT field FROM study_fields WHERE study_id = ? ORDER BY ord ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject fields: %w", err)
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var field string
		if err := rows.Scan(&field); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		fields = append(fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fields: %w", err)
	}
	return fields, nil
}

// ExportNodes reassembles the long-format nodes table for a study, in the
// row order it was imported with. NULL cells come back as NaN.
func (db *DB) ExportNodes(ref string) (*tractometry.LongTable, error) {
	study, err := db.GetStudy(ref)
	if err != nil {
		return nil, err
	}

	table := &tractometry.LongTable{
		Metrics:     study.Metrics,
		HasSessions: study.HasSessions,
	}

	query := `
		SELECT row_ord, subject_id, session_id, tract_id, node_id, metric_ord, value
		FROM study_nodes
		WHERE study_id = ?
		ORDER BY row_ord ASC, metric_ord ASC
	`
	rows, err := db.Query(query, study.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query study nodes: %w", err)
	}
	defer rows.Close()

	lastOrd := -1
	for rows.Next() {
		var (
			rowOrd, node, metricOrd int
			subject, session, tract string
			value                   sql.NullFloat64
		)
		if err := rows.Scan(&rowOrd, &subject, &session, &tract, &node, &metricOrd, &value); err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		if metricOrd < 0 || metricOrd >= len(table.Metrics) {
			return nil, fmt.Errorf("node row %d references unknown metric ordinal %d", rowOrd, metricOrd)
		}

		if rowOrd != lastOrd {
			values := make([]float64, len(table.Metrics))
			for i := range values {
				values[i] = math.NaN()
			}
			table.Rows = append(table.Rows, tractometry.LongRow{
				Subject: subject,
				Session: session,
				Tract:   tract,
				Node:    node,
				Values:  values,
			})
			lastOrd = rowOrd
		}
		if value.Valid {
			table.Rows[len(table.Rows)-1].Values[metricOrd] = value.Float64
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node rows: %w", err)
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("study %q has no node rows", ref)
	}
	return table, nil
}

// ExportSubjects reassembles the phenotype table for a study. Studies
// imported without a subjects table return an error.
func (db *DB) ExportSubjects(ref string) (*tractometry.PhenotypeTable, error) {
	study, err := db.GetStudy(ref)
	if err != nil {
		return nil, err
	}
	if study.IndexCol == nil {
		return nil, fmt.Errorf("study %q has no subjects table", ref)
	}

	fields, err := db.studyFields(study.ID)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT subject_id FROM study_subjects WHERE study_id = ? ORDER BY row_ord ASC`, study.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query study subjects: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subjects: %w", err)
	}

	cells := make([][]string, len(subjects))
	for i := range cells {
		cells[i] = make([]string, len(fields))
	}

	cellRows, err := db.Query(
		`SELECT row_ord, field_ord, value FROM study_phenotypes WHERE study_id = ? ORDER BY row_ord ASC, field_ord ASC`,
		study.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query phenotype cells: %w", err)
	}
	defer cellRows.Close()

	for cellRows.Next() {
		var rowOrd, fieldOrd int
		var value string
		if err := cellRows.Scan(&rowOrd, &fieldOrd, &value); err != nil {
			return nil, fmt.Errorf("failed to scan phenotype cell: %w", err)
		}
		if rowOrd < 0 || rowOrd >= len(cells) || fieldOrd < 0 || fieldOrd >= len(fields) {
			return nil, fmt.Errorf("phenotype cell (%d, %d) out of range", rowOrd, fieldOrd)
		}
		cells[rowOrd][fieldOrd] = value
	}
	if err := cellRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating phenotype cells: %w", err)
	}

	table := tractometry.NewPhenotypeTable(*study.IndexCol, fields)
	for i, subject := range subjects {
		table.AddRow(subject, cells[i])
	}
	return table, nil
}

// DeleteStudy removes a study and all of its rows.
func (db *DB) DeleteStudy(ref string) error {
	study, err := db.GetStudy(ref)
	if err != nil {
		return err
	}

	result, err := db.Exec(`DELETE FROM studies WHERE id = ?`, study.ID)
	if err != nil {
		return fmt.Errorf("failed to delete study: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("study %q not found", ref)
	}
	return nil
}
