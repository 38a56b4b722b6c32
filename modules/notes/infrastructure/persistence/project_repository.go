package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arborhq/arbor/modules/notes/domain/entities/project"
	"github.com/arborhq/arbor/pkg/composables"
)

const (
	projectSelectColumns = `id, owner_id, name, created_at, updated_at`

	projectFindByIDQuery = `SELECT ` + projectSelectColumns + ` FROM projects WHERE id = $1`

	projectByOwnerQuery = `
		SELECT ` + projectSelectColumns + ` FROM projects WHERE owner_id = $1 ORDER BY created_at`

	projectInsertQuery = `
		INSERT INTO projects (` + projectSelectColumns + `) VALUES ($1, $2, $3, $4, $5)`

	projectUpdateQuery = `UPDATE projects SET name = $2, updated_at = $3 WHERE id = $1`

	projectDeleteQuery = `DELETE FROM projects WHERE id = $1`
)

type PgProjectRepository struct{}

func NewProjectRepository() project.Repository {
	return &PgProjectRepository{}
}

func (r *PgProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var m ProjectModel
	err = tx.QueryRow(ctx, projectFindByIDQuery, id).
		Scan(&m.ID, &m.OwnerID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, project.ErrProjectNotFound
		}
		return nil, errors.Wrap(err, "failed to get project")
	}
	return toDomainProject(&m), nil
}

func (r *PgProjectRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*project.Project, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, projectByOwnerQuery, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query projects")
	}
	defer rows.Close()

	var projects []*project.Project
	for rows.Next() {
		var m ProjectModel
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan project")
		}
		projects = append(projects, toDomainProject(&m))
	}
	return projects, rows.Err()
}

func (r *PgProjectRepository) Create(ctx context.Context, p *project.Project) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBProject(p)
	if _, err := tx.Exec(ctx, projectInsertQuery, m.ID, m.OwnerID, m.Name, m.CreatedAt, m.UpdatedAt); err != nil {
		return errors.Wrap(err, "failed to insert project")
	}
	return nil
}

func (r *PgProjectRepository) Update(ctx context.Context, p *project.Project) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := toDBProject(p)
	tag, err := tx.Exec(ctx, projectUpdateQuery, m.ID, m.Name, m.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to update project")
	}
	if tag.RowsAffected() == 0 {
		return project.ErrProjectNotFound
	}
	return nil
}

func (r *PgProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, projectDeleteQuery, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete project")
	}
	if tag.RowsAffected() == 0 {
		return project.ErrProjectNotFound
	}
	return nil
}
