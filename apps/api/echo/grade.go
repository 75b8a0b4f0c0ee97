package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grade"
)

type gradeApi struct {
	svc      *grade.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, svc *grade.Service, validate *validator.Validate) {
	api := gradeApi{
		svc:      svc,
		validate: validate,
	}

	gg := g.Group("/grades")
	gg.GET("", api.query)
	gg.POST("", api.upsert)
	gg.POST("/group", api.upsertForGroup)
}

// Handlers

func (api *gradeApi) upsert(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	g, err := api.svc.Upsert(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting grade")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) upsertForGroup(ctx echo.Context) error {
	var data grade.NewGroupGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroupGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.UpsertForGroup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting group grades")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradeApi) query(ctx echo.Context) error {
	var filter grade.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	grades, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}
