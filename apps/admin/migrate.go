package main

import (
	"errors"

	"github.com/trezcool/kia/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errors.New("migrations need the postgres database engine")
	}
	return runMigrationsFunc(cli.db, args[0], args[1:]...)
}
