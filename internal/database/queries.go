package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docdigest/internal/domain"
)

const defaultRunListLimit = 20

func (d *Database) CreateRun(ctx context.Context, run domain.Run) error {
	run.ID = strings.TrimSpace(run.ID)
	if run.ID == "" {
		return errors.New("run ID is empty")
	}

	query := `insert into runs (id, model, started_at, finished_at, documents, succeeded, failed)
	values (?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		run.ID,
		strings.TrimSpace(run.Model),
		run.StartedAt,
		run.StartedAt,
		run.Documents,
		run.Succeeded,
		run.Failed)

	return err
}

func (d *Database) FinishRun(ctx context.Context, run domain.Run) error {
	run.ID = strings.TrimSpace(run.ID)
	if run.ID == "" {
		return errors.New("run ID is empty")
	}

	query := `update runs
	set finished_at = ?, documents = ?, succeeded = ?, failed = ?
	where id = ?`

	_, err := d.db.ExecContext(ctx, query,
		run.FinishedAt,
		run.Documents,
		run.Succeeded,
		run.Failed,
		run.ID)

	return err
}

func (d *Database) AddRunDocument(ctx context.Context, doc domain.RunDocument) error {
	doc.DocumentKey = strings.TrimSpace(doc.DocumentKey)
	if doc.DocumentKey == "" {
		return errors.New("document key is empty")
	}

	query := `insert or replace into run_documents
	(run_id, document_key, status, output_path, segments, error)
	values (?, ?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		doc.RunID,
		doc.DocumentKey,
		string(doc.Status),
		doc.OutputPath,
		doc.Segments,
		doc.Error)

	return err
}

func (d *Database) ListRuns(ctx context.Context, limit int64) ([]domain.Run, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	query := `select id, model, started_at, finished_at, documents, succeeded, failed
	from runs
	order by started_at desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"limit", limit,
				"operation", "ListRuns")
		}
	}()

	var runs []domain.Run
	for rows.Next() {
		var r domain.Run
		if err = rows.Scan(
			&r.ID,
			&r.Model,
			&r.StartedAt,
			&r.FinishedAt,
			&r.Documents,
			&r.Succeeded,
			&r.Failed,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		runs = append(runs, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return runs, nil
}

func (d *Database) ListRunDocuments(
	ctx context.Context,
	runID string,
) ([]domain.RunDocument, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("run ID is empty")
	}

	query := `select run_id, document_key, status, output_path, segments, error
	from run_documents
	where run_id = ?
	order by document_key`

	rows, err := d.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"runID", runID,
				"operation", "ListRunDocuments")
		}
	}()

	var documents []domain.RunDocument
	for rows.Next() {
		var rd domain.RunDocument
		if err = rows.Scan(
			&rd.RunID,
			&rd.DocumentKey,
			&rd.Status,
			&rd.OutputPath,
			&rd.Segments,
			&rd.Error,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		documents = append(documents, rd)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return documents, nil
}
