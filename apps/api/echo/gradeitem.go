package echoapi

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
)

var templateField = "template"

type gradeItemApi struct {
	svc      *gradeitem.Service
	gradeSvc *grade.Service
	validate *validator.Validate
}

func registerGradeItemAPI(g *echo.Group, svc *gradeitem.Service, gradeSvc *grade.Service, validate *validator.Validate) {
	api := gradeItemApi{
		svc:      svc,
		gradeSvc: gradeSvc,
		validate: validate,
	}

	ig := g.Group("/grade-items")
	ig.GET("", api.query)
	ig.POST("", api.create)

	// detail endpoints
	dg := ig.Group("/:id")
	dg.GET("", api.report)
	dg.DELETE("", api.destroy)
	dg.POST("/export", api.export)
}

// Handlers

func (api *gradeItemApi) create(ctx echo.Context) error {
	var data gradeitem.NewGradeItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGradeItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	gi, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade item")
	}
	return ctx.JSON(http.StatusCreated, gi)
}

func (api *gradeItemApi) query(ctx echo.Context) error {
	items, err := api.svc.Query(ctx.Request().Context(), core.CleanString(ctx.QueryParam("courseId")))
	if err != nil {
		return errors.Wrap(err, "querying grade items")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *gradeItemApi) report(ctx echo.Context) error {
	rep, err := api.gradeSvc.ItemReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade item report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *gradeItemApi) destroy(ctx echo.Context) error {
	res, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting grade item")
	}
	return ctx.JSON(http.StatusOK, res)
}

// export fills the uploaded spreadsheet template with the scores of the grade item.
func (api *gradeItemApi) export(ctx echo.Context) error {
	fh, err := ctx.FormFile(templateField)
	if err != nil {
		return grade.ErrNoTemplate
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening template")
	}
	defer func() { _ = file.Close() }()

	exp, err := api.gradeSvc.Export(ctx.Request().Context(), ctx.Param("id"), file)
	if err != nil {
		return errors.Wrap(err, "exporting grades")
	}

	var notFound string
	if len(exp.NotFound) > 0 {
		// identifiers may not be ASCII
		notFound = base64.StdEncoding.EncodeToString([]byte(strings.Join(exp.NotFound, ",")))
	}

	h := ctx.Response().Header()
	h.Set(echo.HeaderContentDisposition, `attachment; filename="`+url.PathEscape(exp.FileName)+`"`)
	h.Set(headerUpdatedCount, strconv.Itoa(exp.Updated))
	h.Set(headerNotFoundCount, strconv.Itoa(len(exp.NotFound)))
	h.Set(headerNotFoundStudents, notFound)
	return ctx.Blob(http.StatusOK, exp.ContentType, exp.Data)
}
