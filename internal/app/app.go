package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/studybud/backend/internal/config"
	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/internal/httpserver"
	"github.com/studybud/backend/internal/identity"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/migrations"
)

// Run bootstraps the StudyBud backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or create-admin")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:], os.Stdout)
	case "create-admin":
		return createAdmin(ctx, args[1:], os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	pool, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	logger.Info("database connected", "dialect", pool.Dialect())

	a, err := newApplication(ctx, pool, cfg, logger)
	if err != nil {
		_ = pool.Close()
		return err
	}
	if err := a.withContent(ctx); err != nil {
		_ = httpserver.Shutdown(cfg.Server.ShutdownTimeout, logger, a.shutdownSteps(nil)...)
		return err
	}
	if _, err := a.settings.All(ctx); err != nil {
		logger.Warn("could not seed default settings", "error", err)
	}

	srv := httpserver.New(cfg, a.handler())
	a.janitor.Start()

	logger.Info("starting http server", "addr", srv.Addr())

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	stopErr := httpserver.Shutdown(cfg.Server.ShutdownTimeout, logger, a.shutdownSteps(srv)...)
	return errors.Join(runErr, stopErr)
}

// shutdownSteps stops the HTTP server first so no new work reaches the background
// workers, then the workers, then the pool.
func (a *application) shutdownSteps(srv *httpserver.Server) []httpserver.Step {
	var steps []httpserver.Step
	if srv != nil {
		steps = append(steps, httpserver.Step{Name: "http server", Stop: srv.Shutdown})
	}
	steps = append(steps, a.stops...)
	steps = append(steps, httpserver.Step{Name: "database", Stop: func(context.Context) error {
		return a.db.Close()
	}})
	return steps
}

func runMigrations(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	if command != "up" && command != "status" {
		return fmt.Errorf("unknown migrate command %q", command)
	}

	if cfg.Database.URL != "" {
		if err := db.EnsureDatabase(ctx, cfg.Database.URL, cfg.Database.ConnectTimeout); err != nil {
			if !cfg.Database.FallbackEnabled {
				return err
			}
			logger.Warn("could not ensure primary database exists", "error", err)
		}
	}

	pool, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	return migrate(ctx, pool, command, out)
}

func migrate(ctx context.Context, pool *db.DB, command string, out io.Writer) error {
	switch command {
	case "status":
		statuses, err := db.Status(ctx, pool, migrations.FS)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			mark := " "
			if s.Applied {
				mark = "x"
			}
			fmt.Fprintf(out, "[%s] %s\n", mark, s.Name)
		}
		return nil
	default:
		applied, err := db.Migrate(ctx, pool, migrations.FS)
		for _, name := range applied {
			fmt.Fprintf(out, "applied migration %s\n", name)
		}
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(out, "no migrations to apply")
		}
		return nil
	}
}

func createAdmin(ctx context.Context, args []string, out io.Writer) error {
	in, err := parseAdminFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	pool, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	a, err := newApplication(ctx, pool, cfg, logger)
	if err != nil {
		return err
	}
	return a.createAdmin(ctx, in, out)
}

func (a *application) createAdmin(ctx context.Context, in identity.RegisterInput, out io.Writer) error {
	user, err := a.admin.CreateAdminUser(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created admin %s (id %d)\n", user.Username, user.ID)
	return nil
}

func parseAdminFlags(args []string) (identity.RegisterInput, error) {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	var in identity.RegisterInput
	fs.StringVar(&in.Email, "email", "", "admin email address")
	fs.StringVar(&in.Username, "username", "", "admin username")
	fs.StringVar(&in.Password, "password", "", "admin password (at least 8 characters)")
	fs.StringVar(&in.FullName, "name", "", "admin full name")
	if err := fs.Parse(args); err != nil {
		return identity.RegisterInput{}, err
	}
	if in.Email == "" || in.Username == "" || in.Password == "" {
		return identity.RegisterInput{}, errors.New("create-admin: -email, -username and -password are required")
	}
	if in.FullName == "" {
		in.FullName = in.Username
	}
	return in, nil
}
