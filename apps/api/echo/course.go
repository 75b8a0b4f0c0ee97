package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/grade"
)

type courseApi struct {
	svc      *course.Service
	gradeSvc *grade.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, svc *course.Service, gradeSvc *grade.Service, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		gradeSvc: gradeSvc,
		validate: validate,
	}

	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/gradebook", api.gradebook)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) gradebook(ctx echo.Context) error {
	gb, err := api.gradeSvc.Gradebook(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting gradebook")
	}
	return ctx.JSON(http.StatusOK, gb)
}
