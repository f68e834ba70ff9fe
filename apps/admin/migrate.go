package main

import (
	"errors"

	"github.com/trezcool/goose"

	"github.com/trezcool/shule/storage/database"
)

var (
	gooseRunFunc = goose.RunFS // mockable

	errNoSQLDatabase = errors.New("migrations need a SQL database engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	return database.RunMigrations(gooseRunFunc, cli.db, cli.conf, args[0], args[1:]...)
}
