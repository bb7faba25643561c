package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core/notification"
)

type notificationApi struct {
	svc notification.Service
}

func registerNotificationAPI(g *echo.Group, api *notificationApi) {
	ng := g.Group("/notifications")
	ng.POST("/test", api.sendTest)
}

// Handlers

func (api *notificationApi) sendTest(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data TestNotificationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestNotificationRequest")
	}

	res, err := api.svc.SendTest(ctx.Request().Context(), usr, data.Title, data.Body)
	if err != nil {
		if errors.Cause(err) == notification.ErrNoToken {
			return errNoFCMToken
		}
		return errors.Wrap(err, "sending test notification")
	}
	if len(res.MessageIDs) == 0 {
		return errPushFailed
	}
	return ctx.JSON(http.StatusOK, TestNotificationResponse{
		Message:   "Test notification sent successfully",
		MessageID: res.MessageIDs[0],
	})
}

type (
	TestNotificationRequest struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}

	TestNotificationResponse struct {
		Message   string `json:"message"`
		MessageID string `json:"message_id"`
	}
)
