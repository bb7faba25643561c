package payment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/payment"
	testutil "github.com/trezcool/kia/tests"
)

func TestNewPayment_Validate(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	st := app.CreateStudent(t, "Amira Haddad", app.CreateParent(t, "Leila Haddad", "leila@kia.test").ID, 0)
	due, _ := core.ParseDate("2026-03-01")

	tests := []struct {
		name    string
		data    payment.NewPayment
		wantErr bool
	}{
		{name: "zero amount", data: payment.NewPayment{StudentID: st.ID, DueDate: due}, wantErr: true},
		{name: "negative amount", data: payment.NewPayment{StudentID: st.ID, Amount: -5, DueDate: due}, wantErr: true},
		{name: "no due date", data: payment.NewPayment{StudentID: st.ID, Amount: 10}, wantErr: true},
		{name: "unknown student", data: payment.NewPayment{StudentID: 999, Amount: 10, DueDate: due}, wantErr: true},
		{name: "valid", data: payment.NewPayment{StudentID: st.ID, Amount: 10, DueDate: due}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(ctx, app.Validate, app.PaymentSvc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("paid date follows is_paid", func(t *testing.T) {
		data := payment.NewPayment{StudentID: st.ID, Amount: 10, DueDate: due, PaidDate: due}
		require.NoError(t, data.Validate(ctx, app.Validate, app.PaymentSvc))
		assert.True(t, data.PaidDate.IsZero())

		data = payment.NewPayment{StudentID: st.ID, Amount: 10, DueDate: due, IsPaid: true}
		require.NoError(t, data.Validate(ctx, app.Validate, app.PaymentSvc))
		assert.Equal(t, core.Today(), data.PaidDate)
	})
}

func TestService_TogglePaid(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	st := app.CreateStudent(t, "Amira Haddad", app.CreateParent(t, "Leila Haddad", "leila@kia.test").ID, 0)
	p := app.CreatePayment(t, st.ID, 100, "2026-03-01", false)

	p, err := app.PaymentSvc.TogglePaid(ctx, p)
	require.NoError(t, err)
	assert.True(t, p.IsPaid)
	assert.Equal(t, core.Today(), p.PaidDate)

	p, err = app.PaymentSvc.TogglePaid(ctx, p)
	require.NoError(t, err)
	assert.False(t, p.IsPaid)
	assert.True(t, p.PaidDate.IsZero())
}

func TestService_SummarizeParent(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	parent := app.CreateParent(t, "Leila Haddad", "leila@kia.test")

	t.Run("no children", func(t *testing.T) {
		s, err := app.PaymentSvc.SummarizeParent(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, s.TotalDue)
		assert.Zero(t, s.PendingCount)
		assert.NotNil(t, s.ChildrenSummary)
		assert.Empty(t, s.ChildrenSummary)
	})

	amira := app.CreateStudent(t, "Amira Haddad", parent.ID, 0)
	karim := app.CreateStudent(t, "Karim Haddad", parent.ID, 0)
	app.CreatePayment(t, amira.ID, 100, "2026-03-01", false)
	next := app.CreatePayment(t, amira.ID, 50, "2026-02-01", false)
	app.CreatePayment(t, amira.ID, 25, "2026-01-01", true)
	app.CreatePayment(t, karim.ID, 10, "2026-01-01", true)

	children, err := app.StudentSvc.ListForParent(ctx, parent.ID)
	require.NoError(t, err)
	s, err := app.PaymentSvc.SummarizeParent(ctx, children)
	require.NoError(t, err)

	assert.Equal(t, 150.0, s.TotalDue)
	assert.Equal(t, 35.0, s.TotalPaid)
	assert.Equal(t, 2, s.PendingCount)
	require.Len(t, s.ChildrenSummary, 2)

	first := s.ChildrenSummary[0]
	assert.Equal(t, amira.ID, first.Student.ID)
	assert.Equal(t, 150.0, first.TotalDue)
	require.NotNil(t, first.NextPayment)
	assert.Equal(t, next.ID, first.NextPayment.ID)

	second := s.ChildrenSummary[1]
	assert.Equal(t, karim.ID, second.Student.ID)
	assert.Equal(t, 10.0, second.TotalPaid)
	assert.Nil(t, second.NextPayment)
}
