package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/studybud/backend/internal/admin"
	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/catalog"
	"github.com/studybud/backend/internal/config"
	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/internal/handlers"
	"github.com/studybud/backend/internal/httpserver"
	"github.com/studybud/backend/internal/identity"
	"github.com/studybud/backend/internal/janitor"
	"github.com/studybud/backend/internal/mailer"
	"github.com/studybud/backend/internal/media"
	"github.com/studybud/backend/internal/middleware"
	"github.com/studybud/backend/internal/repositories"
	"github.com/studybud/backend/internal/settings"
	"github.com/studybud/backend/internal/storage"
)

// repos holds one repository per table, all sharing the process-wide pool.
type repos struct {
	users       *repositories.UserRepository
	courses     *repositories.CourseRepository
	videos      *repositories.VideoRepository
	books       *repositories.BookRepository
	enrollments *repositories.EnrollmentRepository
	progress    *repositories.ProgressRepository
	saved       *repositories.SavedVideoRepository
	history     *repositories.HistoryRepository
	logins      *repositories.LoginActivityRepository
	resetTokens *repositories.ResetTokenRepository
	preferences *repositories.PreferencesRepository
	settings    *repositories.SettingsRepository
}

func newRepos(d *db.DB) repos {
	return repos{
		users:       repositories.NewUserRepository(d),
		courses:     repositories.NewCourseRepository(d),
		videos:      repositories.NewVideoRepository(d),
		books:       repositories.NewBookRepository(d),
		enrollments: repositories.NewEnrollmentRepository(d),
		progress:    repositories.NewProgressRepository(d),
		saved:       repositories.NewSavedVideoRepository(d),
		history:     repositories.NewHistoryRepository(d),
		logins:      repositories.NewLoginActivityRepository(d),
		resetTokens: repositories.NewResetTokenRepository(d),
		preferences: repositories.NewPreferencesRepository(d),
		settings:    repositories.NewSettingsRepository(d),
	}
}

// application holds the long-lived collaborators built once per process.
type application struct {
	cfg    config.Config
	logger *slog.Logger
	db     *db.DB
	repos  repos

	sessionStore auth.SessionStore
	sessions     *auth.Manager
	settings     *settings.Service
	identity     *identity.Service
	admin        *admin.Service

	// Set by withContent; serve needs them, create-admin does not.
	files   storage.Store
	probes  *media.ProbeQueue
	catalog *catalog.Service
	janitor *janitor.Janitor

	stops []httpserver.Step
}

// newApplication wires the account side of the system: sessions, settings, identity
// and admin services.
func newApplication(ctx context.Context, d *db.DB, cfg config.Config, logger *slog.Logger) (*application, error) {
	a := &application{cfg: cfg, logger: logger, db: d, repos: newRepos(d)}

	store, err := newSessionStore(ctx, d, cfg.Session)
	if err != nil {
		return nil, err
	}
	a.sessionStore = store
	if closer, ok := store.(interface{ Close() error }); ok {
		a.stops = append(a.stops, httpserver.Step{Name: "session store", Stop: func(context.Context) error {
			return closer.Close()
		}})
	}

	a.sessions = auth.NewManager(cfg.Session.Lifetime, store)
	a.settings = settings.NewService(a.repos.settings, cfg.SettingsCacheTTL)
	a.identity = identity.NewService(identity.Dependencies{
		Users:         a.repos.users,
		Logins:        a.repos.logins,
		ResetTokens:   a.repos.resetTokens,
		Preferences:   a.repos.preferences,
		Settings:      a.settings,
		Sessions:      a.sessions,
		Hasher:        auth.NewPasswordHasher(cfg.Security.PasswordPepper),
		Mailer:        mailer.New(cfg.Mail),
		BaseURL:       cfg.BaseURL,
		LockoutWindow: cfg.Security.LoginLockoutWindow,
	})
	a.admin = admin.NewService(admin.Dependencies{
		Users:    a.repos.users,
		Courses:  a.repos.courses,
		Videos:   a.repos.videos,
		Logins:   a.repos.logins,
		Accounts: a.identity,
		Settings: a.settings,
		Sessions: a.sessions,
	})
	return a, nil
}

// newSessionStore picks the session backend named in cfg.
func newSessionStore(ctx context.Context, d *db.DB, cfg config.SessionConfig) (auth.SessionStore, error) {
	switch cfg.Backend {
	case "", "database":
		return repositories.NewSessionStore(d), nil
	case "memory":
		return auth.NewInMemorySessionStore(), nil
	case "redis":
		return auth.NewRedisSessionStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// withContent wires media storage, the duration probe workers, the content service
// and the cleanup janitor.
func (a *application) withContent(ctx context.Context) error {
	files, err := storage.New(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}
	a.files = files

	var resolve media.SourceResolver
	switch store := files.(type) {
	case *storage.LocalStore:
		resolve = store.Path
	case *storage.S3Storage:
		resolve = store.ProbeURL
	}
	a.probes = media.NewProbeQueue(
		media.NewFFProbe(a.cfg.Probe.FFProbePath, a.cfg.Probe.Timeout),
		a.repos.videos,
		resolve,
		media.QueueConfig{QueueSize: a.cfg.Probe.QueueSize, Workers: a.cfg.Probe.Workers, Timeout: a.cfg.Probe.Timeout},
		a.logger,
	)
	a.stops = append(a.stops, httpserver.Step{Name: "probe queue", Stop: a.probes.Shutdown})

	a.catalog = catalog.NewService(catalog.Dependencies{
		Courses:     a.repos.courses,
		Videos:      a.repos.videos,
		Books:       a.repos.books,
		Enrollments: a.repos.enrollments,
		Progress:    a.repos.progress,
		Saved:       a.repos.saved,
		History:     a.repos.history,
		Users:       a.repos.users,
		Files:       files,
		Probes:      a.probes,
	})

	tasks := []janitor.Task{{Name: "password reset tokens", Purger: a.repos.resetTokens}}
	if purger, ok := a.sessionStore.(janitor.Purger); ok {
		tasks = append(tasks, janitor.Task{Name: "sessions", Purger: purger})
	}
	a.janitor, err = janitor.New(a.cfg.JanitorSchedule, a.logger, tasks...)
	if err != nil {
		return fmt.Errorf("janitor schedule %q: %w", a.cfg.JanitorSchedule, err)
	}
	a.stops = append(a.stops, httpserver.Step{Name: "janitor", Stop: a.janitor.Stop})
	return nil
}

// routes builds the handler dependencies. withContent must have run.
func (a *application) routes(metrics *middleware.Metrics) handlers.Dependencies {
	deps := handlers.Dependencies{
		Accounts:       a.identity,
		Courses:        a.catalog,
		Learning:       a.catalog,
		Admin:          a.admin,
		Health:         a.db,
		Limiter:        middleware.NewLoginLimiter(a.cfg.Security),
		SecureCookies:  a.cfg.SecureCookies(),
		SessionMaxAge:  a.sessions.Lifetime(),
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
	}
	if metrics != nil {
		deps.Metrics = metrics.Handler()
	}
	if local, ok := a.files.(*storage.LocalStore); ok {
		deps.Uploads = http.FileServer(http.Dir(local.Dir()))
		deps.UploadsPrefix = a.cfg.Storage.BaseURL
	}
	return deps
}

// handler assembles the middleware chain around the routed mux. Metrics wraps the
// mux directly so it sees the matched route pattern.
func (a *application) handler() http.Handler {
	metrics := middleware.NewMetrics()

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, a.routes(metrics))

	var h http.Handler = metrics.Middleware(mux)
	h = middleware.Maintenance(a.settings, "/api/v1/auth/")(h)
	h = middleware.Sessions(a.sessions)(h)
	h = middleware.RequestLogger(a.logger)(h)
	h = middleware.RealIP(a.cfg.Security.TrustedProxies)(h)
	return h
}
