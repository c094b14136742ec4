package main

import (
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/openpulpit/sermon-api/migrations"
)

// runMigrations executes the given goose command against the application
// database using the embedded migration files.
func (app *application) runMigrations(command string) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&slogGooseLogger{logger: app.logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.Up(app.db, ".")
	case "down":
		err = goose.Down(app.db, ".")
	case "status":
		err = goose.Status(app.db, ".")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	app.logger.Info("migrations applied", "command", command)
	return nil
}

// slogGooseLogger adapts goose's logger interface to slog.
type slogGooseLogger struct {
	logger interface {
		Info(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}
