package main

import (
	"database/sql"

	"github.com/darasahq/darasa/storage/database"
)

var migrateFunc = func(db *sql.DB) error { return database.Migrate(db) } // mockable

func (cli *commandLine) migrate() error {
	return migrateFunc(cli.db.DB)
}
