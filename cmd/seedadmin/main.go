// cmd/seedadmin/main.go
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/infrastructure/database/postgres"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	name := flag.String("name", "Administrador", "display name of the superadmin")
	email := flag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "superadmin email")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "superadmin password")
	migrate := flag.Bool("migrate", false, "run migrations before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logger.Setup(cfg)

	if *email == "" || *password == "" {
		log.Fatal("usage: seedadmin -email <email> -password <password> [-name <name>] [-migrate]")
	}

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if *migrate {
		if err := postgres.NewMigration(db.GetDB()).RunAutoMigrations(); err != nil {
			log.WithError(err).Fatal("database migration failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, created, err := user.NewAdminService(db.GetDB(), cfg).EnsureSuperadmin(ctx, *name, *email, *password)
	if err != nil {
		log.WithError(err).Fatal("failed to seed superadmin")
	}

	entry := log.WithFields(logrus.Fields{"user_id": admin.ID, "email": admin.Email})
	if created {
		entry.Info("superadmin created")
	} else {
		entry.Info("superadmin already present")
	}
}
