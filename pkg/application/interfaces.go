package application

import (
	"context"
	"embed"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/arborhq/arbor/pkg/eventbus"
)

// Controller is an HTTP surface a module mounts on the router. Key must be
// unique across the application; registering the same key twice replaces the
// earlier controller.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module wires a feature's services, controllers and migrations into the
// application.
type Module interface {
	Name() string
	Register(app Application) error
}

// MigrationManager applies embedded schema files against the pool.
type MigrationManager interface {
	Register(fs ...*embed.FS)
	Run(ctx context.Context) error
}

type SeedFunc func(ctx context.Context, app Application) error

type Seeder interface {
	Register(seedFuncs ...SeedFunc)
	Seed(ctx context.Context, app Application) error
}

type Application interface {
	DB() *pgxpool.Pool
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger

	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
	Services() map[reflect.Type]interface{}

	Controllers() []Controller
	RegisterControllers(controllers ...Controller)

	Middleware() []mux.MiddlewareFunc
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)

	Migrations() MigrationManager
}
