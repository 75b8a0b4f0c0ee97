package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/storage/database"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	// start CLI
	courseRepo := sqlxrepos.NewCourseRepository(db)
	cli := commandLine{
		db:        db,
		out:       os.Stdout,
		validate:  validate,
		courseSvc: course.NewService(courseRepo),
		courses:   courseRepo,
		items:     sqlxrepos.NewGradeItemRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
