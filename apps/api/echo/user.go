package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type userApi struct {
	conf     *core.Config
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	svc *user.Service,
	validate *validator.Validate,
) {
	api := userApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	// TODO: rate limit `/register` & `/activate`
	ug.POST("/register", api.register)
	ug.POST("/activate", api.activate)
	ug.POST("/login", api.login)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	token, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	return ctx.JSON(http.StatusCreated, RegisterResponse{
		Success:         true,
		Message:         fmt.Sprintf("Please check your email: %s to activate your account!", data.Email),
		ActivationToken: token,
	})
}

func (api *userApi) activate(ctx echo.Context) error {
	var data user.ActivateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActivateUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Activate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "activating user")
	}
	return ctx.JSON(http.StatusCreated, UserResponse{Success: true, User: usr})
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Success: true, Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Success: true, Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, UserResponse{Success: true, User: usr})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}

	RegisterResponse struct {
		Success         bool   `json:"success"`
		Message         string `json:"message"`
		ActivationToken string `json:"activation_token"`
	}

	UserResponse struct {
		Success bool      `json:"success"`
		User    user.User `json:"user"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
