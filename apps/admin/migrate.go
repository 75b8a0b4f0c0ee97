package main

import (
	"github.com/pressly/goose/v3"

	"github.com/trezcool/gradebook/fs"
	"github.com/trezcool/gradebook/storage/database"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	if err := database.PrepareMigrations(); err != nil {
		return err
	}
	return gooseRunFunc(args[0], cli.db.DB, appfs.MigrationsDir, args[1:]...)
}
