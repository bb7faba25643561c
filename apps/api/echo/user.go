package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
)

const msgPasswordResetSent = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type userApi struct {
	svc      user.Service
	tokens   *TokenIssuer
	validate *validator.Validate
	logger   core.Logger
}

func registerUserAPI(g *echo.Group, jwt, rateLimit echo.MiddlewareFunc, api *userApi) {
	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login, rateLimit)
	ag.POST("/password-reset", api.resetPassword, rateLimit)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset, rateLimit)

	ag.POST("/refresh", api.refreshToken, jwt, tokenTypeMiddleware(TokenRefresh), parentMiddleware(api.svc))

	// authed endpoints
	pg := ag.Group("", jwt, tokenTypeMiddleware(TokenAccess), parentMiddleware(api.svc))
	pg.GET("/me", api.me)
	pg.POST("/fcm-token", api.setFCMToken)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return errMissingCredentials
	}

	usr, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}

	access, err := api.tokens.AccessToken(usr)
	if err != nil {
		return errors.Wrap(err, "generating access token")
	}
	refresh, err := api.tokens.RefreshToken(usr)
	if err != nil {
		return errors.Wrap(err, "generating refresh token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{AccessToken: access, RefreshToken: refresh, User: usr})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	access, err := api.tokens.AccessToken(usr)
	if err != nil {
		return errors.Wrap(err, "generating access token")
	}
	return ctx.JSON(http.StatusOK, RefreshResponse{AccessToken: access})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) setFCMToken(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data FCMTokenRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FCMTokenRequest")
	}
	if data.FCMToken = core.CleanString(data.FCMToken); data.FCMToken == "" {
		return errFCMTokenRequired
	}

	if _, err := api.svc.SetFCMToken(ctx.Request().Context(), usr, data.FCMToken); err != nil {
		return errors.Wrap(err, "setting FCM token")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "FCM token updated successfully"})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msgPasswordResetSent})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset with the new password."})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		User         user.User `json:"user"`
	}

	RefreshResponse struct {
		AccessToken string `json:"access_token"`
	}

	FCMTokenRequest struct {
		FCMToken string `json:"fcm_token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
