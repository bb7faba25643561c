package echoapi_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/material"
)

func Test_subjectApi(t *testing.T) {
	app, srv := setup(t)
	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	grade1 := app.CreateClasse(t, "Grade 1")
	grade2 := app.CreateClasse(t, "Grade 2")
	app.CreateStudent(t, "Amira Haddad", leila.ID, grade1.ID)

	maths := app.CreateSubject(t, "Maths", grade1.ID)
	physics := app.CreateSubject(t, "Physics", grade2.ID)
	second := app.CreateVideo(t, "Fractions", maths.ID, 2)
	first := app.CreateVideo(t, "Numbers", maths.ID, 1)
	maths, err := app.SubjectSvc.GetByID(ctx(), maths.ID)
	require.NoError(t, err)
	mats, err := app.MaterialSvc.Query(ctx(), &material.QueryFilter{SubjectID: maths.ID},
		[]core.DBOrdering{{Field: "order_index", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, mats, 2)
	require.Equal(t, first.ID, mats[0].ID)
	require.Equal(t, second.ID, mats[1].ID)

	token := accessToken(t, app, leila)
	path := func(id int, suffix string) string {
		return "/api/subjects/" + strconv.Itoa(id) + suffix
	}
	denied := marchallObj(t, httpErr{Error: "Access denied"})
	notFound := marchallObj(t, httpErr{Error: "Subject not found"})

	tests := []httpTest{
		{name: "Auth required", path: path(maths.ID, ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "subject", path: path(maths.ID, ""), token: token, wantData: marchallObj(t, maths)},
		{name: "unknown subject", path: path(999, ""), token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "no child in class", path: path(physics.ID, ""), token: token, wantCode: http.StatusForbidden, wantData: denied},
		{name: "materials", path: path(maths.ID, "/materials"), token: token, wantData: marchallList(t, mats[0], mats[1])},
		{name: "materials of unknown subject", path: path(999, "/materials"), token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "materials without child in class", path: path(physics.ID, "/materials"), token: token, wantCode: http.StatusForbidden, wantData: denied},
		{
			name: "no materials yet", path: path(app.CreateSubject(t, "Arabic", grade1.ID).ID, "/materials"),
			token: token, wantData: marchallList(t),
		},
	}
	runTests(t, srv, tests)
}
