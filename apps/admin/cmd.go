package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/gradeitem"
)

// suggestionRatio is the minimum similarity for an unknown command to get a suggestion.
const suggestionRatio = 0.6

var (
	errHelp = errors.New("help provided")

	commands = []string{"migrate", "gradeitems", "createcourse"}
)

type commandLine struct {
	db        *sqlx.DB
	out       io.Writer
	validate  *validator.Validate
	courseSvc *course.Service
	courses   course.Repository
	items     gradeitem.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                             - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  gradeitems                                         - list the grade items of every course")
	fmt.Fprintln(cli.out, "  createcourse -name NAME [-code CODE] [-description DESC] - create a course")
}

// suggest returns the known command closest to cmd, if any is close enough.
func suggest(cmd string) string {
	var best string
	var bestRatio float64
	for _, c := range commands {
		ratio := difflib.NewMatcher(strings.Split(cmd, ""), strings.Split(c, "")).Ratio()
		if ratio >= suggestionRatio && ratio > bestRatio {
			best, bestRatio = c, ratio
		}
	}
	return best
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createCourseCmd := flag.NewFlagSet("createcourse", flag.ContinueOnError)
	createCourseCmd.SetOutput(cli.out)
	createCourseName := createCourseCmd.String("name", "", "The course name (unique).")
	createCourseCode := createCourseCmd.String("code", "", "The course code.")
	createCourseDesc := createCourseCmd.String("description", "", "The course description.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "gradeitems":
		return cli.listGradeItems()
	case "createcourse":
		if err := createCourseCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *createCourseName == "" {
			createCourseCmd.Usage()
			return errHelp
		}
		return cli.createCourse(*createCourseName, *createCourseCode, *createCourseDesc)
	default:
		if s := suggest(args[1]); s != "" {
			fmt.Fprintf(cli.out, "unknown command %q, did you mean %q?\n", args[1], s)
		}
		cli.printUsage()
		return errHelp
	}
}
