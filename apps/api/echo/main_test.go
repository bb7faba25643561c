package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/kia/apps/api/echo"
	"github.com/trezcool/kia/core/user"
	"github.com/trezcool/kia/storage/session"
	testutil "github.com/trezcool/kia/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func setup(t *testing.T) (*testutil.App, echoapi.Server) {
	t.Helper()
	app := testutil.NewApp(t)
	return app, newServer(t, app)
}

func newServer(t *testing.T, app *testutil.App) echoapi.Server {
	t.Helper()
	srv, err := echoapi.NewServer(echoapi.ServerDeps{
		Conf:            app.Conf,
		Logger:          app.Logger,
		Validate:        app.Validate,
		Translator:      app.Translator,
		UserSvc:         app.UserSvc,
		ClasseSvc:       app.ClasseSvc,
		StudentSvc:      app.StudentSvc,
		SubjectSvc:      app.SubjectSvc,
		MaterialSvc:     app.MaterialSvc,
		PaymentSvc:      app.PaymentSvc,
		AttendanceSvc:   app.AttendanceSvc,
		NotificationSvc: app.NotificationSvc,
		Sessions:        session.NewMemoryStore(),
		UploadDir:       app.Storage.Dir(),
	})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	return srv
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func runTests(t *testing.T, srv echoapi.Server, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func accessToken(t *testing.T, app *testutil.App, usr user.User) string {
	t.Helper()
	token, err := echoapi.NewTokenIssuer(app.Conf).AccessToken(usr)
	if err != nil {
		t.Fatalf("accessToken() failed: %v", err)
	}
	return token
}

func refreshToken(t *testing.T, app *testutil.App, usr user.User) string {
	t.Helper()
	token, err := echoapi.NewTokenIssuer(app.Conf).RefreshToken(usr)
	if err != nil {
		t.Fatalf("refreshToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
