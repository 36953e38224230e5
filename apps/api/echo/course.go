package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

var errNothingToUpdate = core.NewValidationError(errors.New("no field to update"))

type courseApi struct {
	svc      *course.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *course.Service,
	usrSvc *user.Service,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/courses")

	// catalog
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("", api.create, jwt, adminMiddleware())
	cg.PUT("/:id", api.update, jwt, adminMiddleware())

	// enrolled content
	cg.GET("/:id/content", api.content, jwt)
	cg.PUT("/:id/questions", api.addQuestion, jwt)
	cg.PUT("/:id/answers", api.addAnswer, jwt)
	cg.PUT("/:id/reviews", api.addReview, jwt)
	cg.PUT("/:id/reviews/:review_id/replies", api.addReviewReply, jwt, adminMiddleware())
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QuerySummaries(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, CoursesResponse{Success: true, Courses: courses})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetSummary(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, CourseResponse{Success: true, Course: c})
}

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
	return ctx.JSON(http.StatusCreated, CourseResponse{Success: true, Course: c})
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if data.IsEmpty() {
		return errNothingToUpdate
	}

	c, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, CourseResponse{Success: true, Course: c})
}

func (api *courseApi) content(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	c, err := api.svc.GetForCaller(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course content")
	}
	return ctx.JSON(http.StatusOK, CourseResponse{Success: true, Course: c})
}

func (api *courseApi) addQuestion(ctx echo.Context) error {
	var data course.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	caller, err := getContextCaller(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	c, err := api.svc.AddQuestion(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusOK, CourseResponse{Success: true, Course: c})
}

func (api *courseApi) addAnswer(ctx echo.Context) error {
	var data course.NewAnswer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnswer")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	caller, err := getContextCaller(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	c, err := api.svc.AddAnswer(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding answer")
	}
	return ctx.JSON(http.StatusOK, CourseResponse{Success: true, Course: c})
}

func (api *courseApi) addReview(ctx echo.Context) error {
	var data course.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	caller, err := getContextCaller(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	c, err := api.svc.AddReview(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding review")
	}
	return ctx.JSON(http.StatusOK, CourseResponse{Success: true, Course: c})
}

func (api *courseApi) addReviewReply(ctx echo.Context) error {
	var data course.NewReviewReply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReviewReply")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	caller, err := getContextCaller(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	c, err := api.svc.AddReviewReply(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("review_id"), data)
	if err != nil {
		return errors.Wrap(err, "adding review reply")
	}
	return ctx.JSON(http.StatusOK, CourseResponse{Success: true, Course: c})
}

type (
	CourseResponse struct {
		Success bool          `json:"success"`
		Course  course.Course `json:"course"`
	}

	CoursesResponse struct {
		Success bool            `json:"success"`
		Courses []course.Course `json:"courses"`
	}
)
