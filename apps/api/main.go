package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/group"
	"github.com/trezcool/gradebook/core/student"
	logsvc "github.com/trezcool/gradebook/services/logger"
	spreadsheetsvc "github.com/trezcool/gradebook/services/spreadsheet"
	"github.com/trezcool/gradebook/storage/database"
	dummydb "github.com/trezcool/gradebook/storage/database/dummy"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

type repositories struct {
	courses    course.Repository
	students   student.Repository
	groups     group.Repository
	gradeItems gradeitem.Repository
	grades     grade.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB & repos
	var repos repositories
	if conf.Database.InMemory {
		dummy, err := dummydb.Open()
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening in-memory database: %v", err), err)
		}
		repos = repositories{
			courses:    dummydb.NewCourseRepository(dummy),
			students:   dummydb.NewStudentRepository(dummy),
			groups:     dummydb.NewGroupRepository(dummy),
			gradeItems: dummydb.NewGradeItemRepository(dummy),
			grades:     dummydb.NewGradeRepository(dummy),
		}
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		repos = repositories{
			courses:    sqlxrepos.NewCourseRepository(db),
			students:   sqlxrepos.NewStudentRepository(db),
			groups:     sqlxrepos.NewGroupRepository(db),
			gradeItems: sqlxrepos.NewGradeItemRepository(db),
			grades:     sqlxrepos.NewGradeRepository(db),
		}
	}

	// set up services
	courseSvc := course.NewService(repos.courses)
	studentSvc := student.NewService(repos.students, repos.courses)
	groupSvc := group.NewService(repos.groups, repos.courses, studentSvc)
	gradeItemSvc := gradeitem.NewService(repos.gradeItems, repos.courses)
	gradeSvc := grade.NewService(
		repos.grades,
		repos.courses,
		repos.students,
		repos.gradeItems,
		repos.groups,
		spreadsheetsvc.NewExcelizeSpreadsheet(),
		conf,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	group.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			CourseSvc:    courseSvc,
			StudentSvc:   studentSvc,
			GroupSvc:     groupSvc,
			GradeItemSvc: gradeItemSvc,
			GradeSvc:     gradeSvc,
			Validate:     validate,
			Translator:   translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
