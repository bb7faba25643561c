package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core/payment"
)

func Test_paymentApi_summary(t *testing.T) {
	app, srv := setup(t)
	leila := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	omar := app.CreateParent(t, "Omar Said", "omar@kia.test")
	amira := app.CreateStudent(t, "Amira Haddad", leila.ID, 0)
	adam := app.CreateStudent(t, "Adam Said", omar.ID, 0)
	app.CreatePayment(t, amira.ID, 100, "2026-03-01", false)
	app.CreatePayment(t, amira.ID, 25, "2026-01-01", true)
	app.CreatePayment(t, adam.ID, 999, "2026-03-01", false)

	children, err := app.StudentSvc.ListForParent(ctx(), leila.ID)
	require.NoError(t, err)
	want, err := app.PaymentSvc.SummarizeParent(ctx(), children)
	require.NoError(t, err)
	require.Equal(t, 100.0, want.TotalDue)
	require.Equal(t, 1, want.PendingCount)

	newcomer := app.CreateParent(t, "New", "new@kia.test")
	tests := []httpTest{
		{name: "Auth required", path: "/api/payments/summary", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "summary", path: "/api/payments/summary", token: accessToken(t, app, leila), wantData: marchallObj(t, want)},
		{
			name: "no children", path: "/api/payments/summary", token: accessToken(t, app, newcomer),
			wantData: marchallObj(t, payment.ParentSummary{ChildrenSummary: []payment.ChildSummary{}}),
		},
	}
	runTests(t, srv, tests)
}
