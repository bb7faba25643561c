package echoapi_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/kia/apps/api/echo"
	"github.com/trezcool/kia/core/notification"
)

func Test_notificationApi_sendTest(t *testing.T) {
	app, srv := setup(t)
	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")

	runTests(t, srv, []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/api/notifications/test",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "no device", method: http.MethodPost, path: "/api/notifications/test", token: accessToken(t, app, leila),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "User has no FCM token registered"}),
		},
	})

	leila = app.SetFCMToken(t, leila, "device-1")
	token := accessToken(t, app, leila)

	t.Run("default message", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/notifications/test", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res echoapi.TestNotificationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "Test notification sent successfully", res.Message)
		assert.True(t, strings.HasPrefix(res.MessageID, "console/"), res.MessageID)

		sent := app.Push.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, []string{"device-1"}, sent[0].Tokens)
		assert.Equal(t, "Test Notification", sent[0].Title)
		assert.Equal(t, notification.TypeTest, sent[0].Data["type"])
	})

	t.Run("custom message", func(t *testing.T) {
		app.Push.Reset()
		body := marchallObj(t, echoapi.TestNotificationRequest{Title: "Hello", Body: "World"})
		req, rec := newAuthRequest(http.MethodPost, "/api/notifications/test", token, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		sent := app.Push.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "Hello", sent[0].Title)
		assert.Equal(t, "World", sent[0].Body)
	})
}
