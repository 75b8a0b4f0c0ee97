package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/group"
)

type groupApi struct {
	svc      *group.Service
	gradeSvc *grade.Service
	validate *validator.Validate
}

func registerGroupAPI(g *echo.Group, svc *group.Service, gradeSvc *grade.Service, validate *validator.Validate) {
	api := groupApi{
		svc:      svc,
		gradeSvc: gradeSvc,
		validate: validate,
	}

	gg := g.Group("/groups")
	gg.GET("", api.query)
	gg.POST("", api.create)
	gg.GET("/unfinished", api.queryUnfinished)

	// detail endpoints
	dg := gg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/students", api.replaceMembers)
}

// Handlers

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *groupApi) query(ctx echo.Context) error {
	groups, err := api.svc.Query(ctx.Request().Context(), core.CleanString(ctx.QueryParam("courseId")))
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

// queryUnfinished lists the groups having members without a score for the grade item.
func (api *groupApi) queryUnfinished(ctx echo.Context) error {
	itemID, err := requireQueryParam(ctx, "gradeItemId")
	if err != nil {
		return err
	}
	groups, err := api.gradeSvc.UnfinishedGroups(ctx.Request().Context(), itemID)
	if err != nil {
		return errors.Wrap(err, "querying unfinished groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	grp, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) update(ctx echo.Context) error {
	var data group.UpdateGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) replaceMembers(ctx echo.Context) error {
	var data group.MembersUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MembersUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.ReplaceMembers(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "replacing group members")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) destroy(ctx echo.Context) error {
	res, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.JSON(http.StatusOK, res)
}
