package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
	"github.com/arborhq/arbor/pkg/composables"
)

const (
	noteSelectColumns = `id, project_id, parent_id, sort_order, content, link, media_ref, time_marker, discussion, images, created_at, updated_at`

	noteFindByIDQuery = `SELECT ` + noteSelectColumns + ` FROM notes WHERE id = $1`

	noteSiblingsQuery = `
		SELECT ` + noteSelectColumns + `
		FROM notes
		WHERE project_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		ORDER BY sort_order, created_at`

	noteByProjectQuery = `
		WITH RECURSIVE tree AS (
			SELECT ` + noteSelectColumns + `, 0 AS depth
			FROM notes
			WHERE project_id = $1 AND parent_id IS NULL
			UNION ALL
			SELECT c.id, c.project_id, c.parent_id, c.sort_order, c.content, c.link,
			       c.media_ref, c.time_marker, c.discussion, c.images, c.created_at,
			       c.updated_at, t.depth + 1
			FROM notes c
			JOIN tree t ON c.parent_id = t.id
		)
		SELECT ` + noteSelectColumns + ` FROM tree ORDER BY depth, sort_order, created_at`

	noteInsertQuery = `
		INSERT INTO notes (` + noteSelectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	noteUpdateQuery = `
		UPDATE notes
		SET content = $2, link = $3, media_ref = $4, time_marker = $5,
		    discussion = $6, images = $7, updated_at = $8
		WHERE id = $1`

	noteUpdatePlacementQuery = `
		UPDATE notes SET parent_id = $2, sort_order = $3, updated_at = now() WHERE id = $1`

	noteUpdateOrderQuery = `
		UPDATE notes SET sort_order = $2, updated_at = now() WHERE id = $1`

	noteDeleteManyQuery = `DELETE FROM notes WHERE id = ANY($1)`

	noteDescendantsQuery = `
		WITH RECURSIVE descendants AS (
			SELECT id FROM notes WHERE parent_id = $1
			UNION ALL
			SELECT n.id FROM notes n JOIN descendants d ON n.parent_id = d.id
		)
		SELECT id FROM descendants`

	noteCountByProjectQuery = `SELECT COUNT(*) FROM notes WHERE project_id = $1`
)

type PgNoteRepository struct{}

func NewNoteRepository() note.Repository {
	return &PgNoteRepository{}
}

func (r *PgNoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*note.Note, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, noteFindByIDQuery, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, note.ErrNoteNotFound
		}
		return nil, errors.Wrap(err, "failed to get note")
	}
	return n, nil
}

func (r *PgNoteRepository) GetSiblings(ctx context.Context, projectID uuid.UUID, parentID *uuid.UUID) ([]*note.Note, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, noteSiblingsQuery, projectID, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query siblings")
	}
	defer rows.Close()
	return collectNotes(rows)
}

func (r *PgNoteRepository) GetByProject(ctx context.Context, projectID uuid.UUID) ([]*note.Note, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, noteByProjectQuery, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query project notes")
	}
	defer rows.Close()
	return collectNotes(rows)
}

func (r *PgNoteRepository) Create(ctx context.Context, n *note.Note) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBNote(n)
	if _, err := tx.Exec(
		ctx, noteInsertQuery,
		m.ID, m.ProjectID, m.ParentID, m.SortOrder, m.Content, m.Link,
		m.MediaRef, m.TimeMarker, m.Discussion, m.Images, m.CreatedAt, m.UpdatedAt,
	); err != nil {
		return errors.Wrap(err, "failed to insert note")
	}
	return nil
}

func (r *PgNoteRepository) Update(ctx context.Context, n *note.Note) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBNote(n)
	tag, err := tx.Exec(
		ctx, noteUpdateQuery,
		m.ID, m.Content, m.Link, m.MediaRef, m.TimeMarker, m.Discussion, m.Images, m.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update note")
	}
	if tag.RowsAffected() == 0 {
		return note.ErrNoteNotFound
	}
	return nil
}

func (r *PgNoteRepository) UpdatePlacement(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, sortOrder order.Key) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, noteUpdatePlacementQuery, id, parentID, sortOrder.Float64())
	if err != nil {
		return errors.Wrap(err, "failed to update placement")
	}
	if tag.RowsAffected() == 0 {
		return note.ErrNoteNotFound
	}
	return nil
}

// UpdateOrders rewrites sort keys for the given notes in one transaction via
// a single batch round trip; either every row is updated or none.
func (r *PgNoteRepository) UpdateOrders(ctx context.Context, notes []*note.Note) error {
	if len(notes) == 0 {
		return nil
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, n := range notes {
			batch.Queue(noteUpdateOrderQuery, n.ID(), n.SortOrder().Float64())
		}
		results := tx.SendBatch(txCtx, batch)
		defer results.Close()
		for range notes {
			if _, err := results.Exec(); err != nil {
				return errors.Wrap(err, "failed to update sort order")
			}
		}
		return nil
	})
}

func (r *PgNoteRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, noteDeleteManyQuery, ids)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete notes")
	}
	return tag.RowsAffected(), nil
}

func (r *PgNoteRepository) DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, noteDescendantsQuery, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query descendants")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var descendantID uuid.UUID
		if err := rows.Scan(&descendantID); err != nil {
			return nil, errors.Wrap(err, "failed to scan descendant id")
		}
		ids = append(ids, descendantID)
	}
	return ids, rows.Err()
}

func (r *PgNoteRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.QueryRow(ctx, noteCountByProjectQuery, projectID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count notes")
	}
	return count, nil
}

func scanNote(row pgx.Row) (*note.Note, error) {
	var m NoteModel
	if err := row.Scan(
		&m.ID, &m.ProjectID, &m.ParentID, &m.SortOrder, &m.Content, &m.Link,
		&m.MediaRef, &m.TimeMarker, &m.Discussion, &m.Images, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainNote(&m), nil
}

func collectNotes(rows pgx.Rows) ([]*note.Note, error) {
	var notes []*note.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan note")
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
