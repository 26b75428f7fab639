package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-chi/chi"
	"github.com/golang-migrate/migrate/v4"
	migratep "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Decentr-net/go-api/health"
	"github.com/Decentr-net/logrus/sentry"

	"github.com/Decentr-net/socialfeed/internal/auth"
	"github.com/Decentr-net/socialfeed/internal/fixtures"
	"github.com/Decentr-net/socialfeed/internal/notify"
	"github.com/Decentr-net/socialfeed/internal/server"
	"github.com/Decentr-net/socialfeed/internal/service"
	"github.com/Decentr-net/socialfeed/internal/service/impl"
	"github.com/Decentr-net/socialfeed/internal/session"
	sessionmemory "github.com/Decentr-net/socialfeed/internal/session/memory"
	sessionpostgres "github.com/Decentr-net/socialfeed/internal/session/postgres"
	"github.com/Decentr-net/socialfeed/internal/storage/memory"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	Host string `long:"http.host" env:"HTTP_HOST" default:"0.0.0.0" description:"IP to listen on"`
	Port int    `long:"http.port" env:"HTTP_PORT" default:"8080" description:"port to listen on for health and metrics"`

	Postgres           string `long:"postgres" env:"POSTGRES" description:"postgres dsn used to persist the session, in-memory session if empty"`
	PostgresMigrations string `long:"postgres.migrations" env:"POSTGRES_MIGRATIONS" default:"scripts/migrations/postgres" description:"postgres migrations directory"`

	Fixtures     string `long:"fixtures" env:"FIXTURES" description:"path to fixtures yaml, generated sample set is used if empty"`
	FixturesSeed int64  `long:"fixtures.seed" env:"FIXTURES_SEED" default:"1" description:"seed of the generated sample set"`
	NoFixtures   bool   `long:"fixtures.skip" env:"FIXTURES_SKIP" description:"start with an empty store"`

	Username string `long:"login.username" env:"LOGIN_USERNAME" description:"sign in as the user, the saved session is restored if empty"`
	Password string `long:"login.password" env:"LOGIN_PASSWORD" description:"password for login.username"`

	ChangesBuffer int `long:"changes.buffer" env:"CHANGES_BUFFER" default:"64" description:"change log subscription buffer size"`

	LogLevel  string `long:"log.level" env:"LOG_LEVEL" default:"info" description:"Log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`
	SentryDSN string `long:"sentry.dsn" env:"SENTRY_DSN" description:"sentry dsn"`
}{}

var errTerminated = errors.New("terminated")

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Social Feed"
	parser.LongDescription = "Social Feed in-memory store"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	lvl, _ := logrus.ParseLevel(opts.LogLevel) // err will always be nil
	logrus.SetLevel(lvl)

	logrus.Infof("%+v", opts)

	if opts.SentryDSN != "" {
		hook, err := sentry.NewHook(sentry.Options{
			Dsn:              opts.SentryDSN,
			AttachStacktrace: true,
			Release:          health.GetVersion(),
			ServerName:       "socialfeed",
		}, logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel)

		if err != nil {
			logrus.WithError(err).Fatal("failed to init sentry")
		}

		logrus.AddHook(hook)
	} else {
		logrus.Info("empty sentry dsn")
		logrus.Warn("skip sentry initialization")
	}

	j := notify.NewJournal()
	a := impl.New(memory.New(j), j, notify.NewBroker())

	pingers := []health.Pinger{health.SubjectPinger("store", a.Ping)}

	sess := sessionmemory.New()
	if opts.Postgres != "" {
		db := mustGetDB()
		sess = sessionpostgres.New(db)
		pingers = append(pingers, health.SubjectPinger("postgres", db.PingContext))
	}

	r := chi.NewMux()
	server.SetupRouter(r, 5*time.Second, pingers...)
	srv := http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: r,
	}

	logrus.Info("service started")

	if err := run(context.Background(), a, &srv, sess); err != nil && !errors.Is(err, errTerminated) {
		logrus.WithError(err).Fatal("service unexpectedly closed")
	}
}

// run serves until a signal arrives or any of its parts fails.
func run(ctx context.Context, a *impl.Actor, srv *http.Server, sess session.Storage) error {
	gr, ctx := errgroup.WithContext(ctx)

	gr.Go(func() error {
		return a.Run(ctx)
	})
	gr.Go(func() error {
		return watchChanges(ctx, a)
	})
	gr.Go(func() error {
		return prepare(ctx, a, sess)
	})
	gr.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})
	gr.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		defer signal.Stop(sigs)

		var err error
		select {
		case s := <-sigs:
			logrus.Infof("terminating by %s signal", s)
			err = errTerminated
		case <-ctx.Done():
		}

		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("failed to shutdown http server")
		}

		return err
	})

	return gr.Wait()
}

// prepare seeds the store and signs the current user in.
func prepare(ctx context.Context, s service.Service, sess session.Storage) error {
	if !opts.NoFixtures {
		set := fixtures.Generate(opts.FixturesSeed, time.Now())

		if opts.Fixtures != "" {
			var err error
			if set, err = fixtures.Load(opts.Fixtures); err != nil {
				return err
			}
		}

		if _, err := fixtures.Apply(ctx, s, set); err != nil {
			return fmt.Errorf("failed to apply fixtures: %w", err)
		}
	}

	a := auth.New(s, sess)

	var err error
	if opts.Username != "" {
		_, err = a.Login(ctx, opts.Username, opts.Password)
	} else {
		_, err = a.Restore(ctx)
	}

	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}

	if u := a.CurrentUser(); u != nil {
		logrus.WithField("username", u.Username).Info("signed in")
	} else {
		logrus.Info("no saved session")
	}

	return nil
}

// watchChanges writes the change log until ctx is done or the store stops.
func watchChanges(ctx context.Context, s service.Service) error {
	ch, cancel := s.Subscribe(opts.ChangesBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-ch:
			if !ok {
				return nil
			}

			l := logrus.WithField("kind", c.Kind).WithField("id", c.ID).WithField("op", c.Op)
			if logrus.IsLevelEnabled(logrus.DebugLevel) {
				l.Debug(spew.Sdump(c))
			}
		}
	}
}

func mustGetDB() *sql.DB {
	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}

	if err := db.PingContext(context.Background()); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	driver, err := migratep.WithInstance(db, &migratep.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create database migrate driver")
	}

	migrator, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", opts.PostgresMigrations), "postgres", driver)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}

	switch v, d, err := migrator.Version(); err {
	case nil:
		logrus.Infof("database version %d with dirty state %t", v, d)
	case migrate.ErrNilVersion:
		logrus.Info("database version: nil")
	default:
		logrus.WithError(err).Fatal("failed to get version")
	}

	switch err := migrator.Up(); err {
	case nil:
		logrus.Info("database was migrated")
	case migrate.ErrNoChange:
		logrus.Info("database is up-to-date")
	default:
		logrus.WithError(err).Fatal("failed to migrate db")
	}

	return db
}
