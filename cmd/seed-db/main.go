// Command seed-db creates the schema, demo users and the stored catalog.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/user"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/fixture"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/postgres"
)

type credentials struct {
	username string
	password string
}

func parseCredentials(s string) (credentials, error) {
	name, pass, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(name) == "" || pass == "" {
		return credentials{}, errors.Errorf("want username:password, got %q", s)
	}
	return credentials{username: strings.TrimSpace(name), password: pass}, nil
}

func main() {
	var (
		databaseURL string
		catalogFile string
		users       []credentials
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "catalog JSON file (.json or .json.gz); the built-in catalog when empty")
	flag.Func("user", "user to create as username:password (repeatable)", func(s string) error {
		c, err := parseCredentials(s)
		if err != nil {
			return err
		}
		users = append(users, c)
		return nil
	})
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if len(users) == 0 {
		users = []credentials{{username: "demo", password: "demo123"}}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, users); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string, users []credentials) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedUsers(ctx, postgres.NewUserRepository(pool), users); err != nil {
		return errors.Wrap(err, "seed users")
	}

	if err := seedCatalog(ctx, postgres.NewKVStore(pool), catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	return nil
}

func seedUsers(ctx context.Context, repo *postgres.UserRepository, users []credentials) error {
	for _, c := range users {
		u, err := user.New(c.username, c.password)
		if err != nil {
			return errors.Wrapf(err, "hash password for %s", c.username)
		}
		if err := repo.Upsert(ctx, u); err != nil {
			return errors.Wrapf(err, "upsert user %s", c.username)
		}

		slog.Info("upserted user", slog.String("username", u.Username))
	}

	return nil
}

func seedCatalog(ctx context.Context, store *postgres.KVStore, catalogFile string) error {
	var (
		products []product.Product
		err      error
	)
	if catalogFile == "" {
		slog.Info("using built-in catalog")
		products = fixture.Products()
	} else {
		slog.Info("reading catalog file", slog.String("path", catalogFile))
		products, err = fixture.ReadFile(catalogFile)
		if err != nil {
			return errors.Wrap(err, "read catalog file")
		}
	}

	if err := fixture.Save(ctx, store, products); err != nil {
		return errors.Wrap(err, "save catalog")
	}

	slog.Info("stored catalog", slog.Int("count", len(products)))

	return nil
}
