package notes

import (
	"embed"

	"github.com/redis/go-redis/v9"

	"github.com/arborhq/arbor/modules/notes/infrastructure/persistence"
	"github.com/arborhq/arbor/modules/notes/presentation/controllers"
	"github.com/arborhq/arbor/modules/notes/services"
	"github.com/arborhq/arbor/pkg/application"
	"github.com/arborhq/arbor/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/notes-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "notes"
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	app.Migrations().Register(&MigrationFiles)

	noteRepo := persistence.NewNoteRepository()
	projectRepo := persistence.NewProjectRepository()

	statusStore := newStatusStore(conf)

	treeService := services.NewTreeService(noteRepo, app.EventPublisher())
	projectService := services.NewProjectService(projectRepo)
	importService := services.NewImportService(treeService, noteRepo, statusStore, services.ImportConfig{
		BatchSize:    conf.Import.BatchSize,
		Concurrency:  conf.Import.Concurrency,
		MaxRetries:   conf.Import.MaxRetries,
		RetryBackoff: conf.Import.RetryBackoff,
	})

	app.RegisterServices(
		treeService,
		projectService,
		importService,
	)

	app.RegisterControllers(
		controllers.NewNotesAPIController(app),
	)
	return nil
}

func newStatusStore(conf *configuration.Configuration) services.ImportStatusStore {
	if conf.Import.StatusStore != "redis" {
		return services.NewMemoryImportStatusStore(conf.Import.StatusRetention)
	}
	opts, err := redis.ParseURL(conf.RedisURL)
	if err != nil {
		opts = &redis.Options{Addr: conf.RedisURL}
	}
	return services.NewRedisImportStatusStore(redis.NewClient(opts), conf.Import.StatusRetention)
}
