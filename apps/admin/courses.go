package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/gradebook/core/course"
)

func (cli *commandLine) createCourse(name, code, description string) error {
	nc := course.NewCourse{Name: name, Code: code, Description: description}
	if err := nc.Validate(cli.validate); err != nil {
		return err
	}
	c, err := cli.courseSvc.Create(context.Background(), nc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "course %q created (id: %s)\n", c.Name, c.ID)
	return nil
}

// listGradeItems prints every course with its grade items and their total weight.
func (cli *commandLine) listGradeItems() error {
	ctx := context.Background()
	courses, err := cli.courses.QueryCourses(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		fmt.Fprintln(cli.out, "no courses")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	for _, c := range courses {
		items, err := cli.items.QueryGradeItems(ctx, c.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (%d grade items)\n", c.Name, len(items))
		var total float64
		for _, gi := range items {
			fmt.Fprintf(w, "  %s\tweight: %g\tmax score: %g\n", gi.Name, gi.Weight, gi.MaxScore)
			total += gi.Weight
		}
		if len(items) > 0 {
			fmt.Fprintf(w, "  total weight: %g\n", total)
		}
	}
	return w.Flush()
}
