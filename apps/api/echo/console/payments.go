package console

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/services/report"
)

func registerPayments(g *echo.Group, cons *Console) {
	pg := g.Group("/payments")
	pg.GET("", cons.listPayments)
	pg.GET("/export", cons.exportPayments)
	pg.POST("/remind-due", cons.remindDuePayments)
	pg.GET("/create", cons.createPaymentPage)
	pg.POST("/create", cons.createPayment)
	pg.GET("/:id/edit", cons.editPaymentPage)
	pg.POST("/:id/edit", cons.editPayment)
	pg.POST("/:id/delete", cons.deletePayment)
	pg.POST("/:id/toggle-paid", cons.togglePaymentPaid)
	pg.POST("/:id/remind", cons.remindPayment)
}

type (
	paymentList struct {
		Payments  []payment.Payment
		Students  []student.Student
		StudentID int
		Status    string
		Today     core.Date
	}

	paymentForm struct {
		ID        int
		StudentID int
		Amount    float64
		DueDate   string
		PaidDate  string
		IsPaid    bool
		Notes     string
		Students  []student.Student
	}
)

// paymentFilter reads the "student_id" and "status" (paid|unpaid) query params.
func paymentFilter(ctx echo.Context) (*payment.QueryFilter, string) {
	filter := &payment.QueryFilter{StudentID: queryInt(ctx, "student_id")}
	status := ctx.QueryParam("status")
	switch status {
	case "paid", "unpaid":
		isPaid := status == "paid"
		filter.IsPaid = &isPaid
	default:
		status = ""
	}
	return filter, status
}

var paymentsOrdering = []core.DBOrdering{{Field: "due_date", Ascending: false}, {Field: "student_name", Ascending: true}}

func (cons *Console) listPayments(ctx echo.Context) error {
	filter, status := paymentFilter(ctx)
	payments, err := cons.deps.PaymentSvc.Query(ctx.Request().Context(), filter, paymentsOrdering)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	students, err := cons.deps.StudentSvc.Query(ctx.Request().Context(), nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	data := paymentList{
		Payments:  payments,
		Students:  students,
		StudentID: filter.StudentID,
		Status:    status,
		Today:     core.Today(),
	}
	return cons.render(ctx, http.StatusOK, "payments", "Payments", nil, data, nil)
}

func (cons *Console) exportPayments(ctx echo.Context) error {
	filter, _ := paymentFilter(ctx)
	payments, err := cons.deps.PaymentSvc.Query(ctx.Request().Context(), filter, paymentsOrdering)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}

	var buf bytes.Buffer
	if err := report.WritePayments(&buf, payments); err != nil {
		return errors.Wrap(err, "writing payments report")
	}
	fname := fmt.Sprintf("payments-%s.xlsx", core.Today())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fname))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (cons *Console) renderPaymentForm(ctx echo.Context, code int, title string, form paymentForm, errs map[string]string) error {
	students, err := cons.deps.StudentSvc.Query(ctx.Request().Context(), nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	form.Students = students
	return cons.render(ctx, code, "payment_form", title, form, nil, errs)
}

func newPaymentForm(id int, np payment.NewPayment) paymentForm {
	return paymentForm{
		ID:        id,
		StudentID: np.StudentID,
		Amount:    np.Amount,
		DueDate:   np.DueDate.String(),
		PaidDate:  np.PaidDate.String(),
		IsPaid:    np.IsPaid,
		Notes:     np.Notes,
	}
}

func (cons *Console) createPaymentPage(ctx echo.Context) error {
	form := paymentForm{StudentID: queryInt(ctx, "student_id")}
	return cons.renderPaymentForm(ctx, http.StatusOK, "Create Payment", form, nil)
}

func (cons *Console) createPayment(ctx echo.Context) error {
	var np payment.NewPayment
	err := bindForm(ctx, &np)
	if err == nil {
		np.IsPaid = checked(ctx, "is_paid")
		err = np.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.PaymentSvc)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return err
		}
		return cons.renderPaymentForm(ctx, http.StatusBadRequest, "Create Payment", newPaymentForm(0, np), errs)
	}

	if _, err := cons.deps.PaymentSvc.Create(ctx.Request().Context(), np); err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return redirect(ctx, flashSuccess, "Payment created successfully.", "/payments")
}

func (cons *Console) getPayment(ctx echo.Context) (payment.Payment, error) {
	id, err := idParam(ctx)
	if err != nil {
		return payment.Payment{}, err
	}
	p, err := cons.deps.PaymentSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == payment.ErrNotFound {
			return payment.Payment{}, errNotFound
		}
		return payment.Payment{}, errors.Wrap(err, "finding payment")
	}
	return p, nil
}

func (cons *Console) editPaymentPage(ctx echo.Context) error {
	p, err := cons.getPayment(ctx)
	if err != nil {
		return err
	}
	form := paymentForm{
		ID:        p.ID,
		StudentID: p.StudentID,
		Amount:    p.Amount,
		DueDate:   p.DueDate.String(),
		PaidDate:  p.PaidDate.String(),
		IsPaid:    p.IsPaid,
		Notes:     p.Notes,
	}
	return cons.renderPaymentForm(ctx, http.StatusOK, "Edit Payment", form, nil)
}

func (cons *Console) editPayment(ctx echo.Context) error {
	p, err := cons.getPayment(ctx)
	if err != nil {
		return err
	}

	var np payment.NewPayment
	err = bindForm(ctx, &np)
	if err == nil {
		np.IsPaid = checked(ctx, "is_paid")
		err = np.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.PaymentSvc)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return err
		}
		return cons.renderPaymentForm(ctx, http.StatusBadRequest, "Edit Payment", newPaymentForm(p.ID, np), errs)
	}

	if _, err := cons.deps.PaymentSvc.Update(ctx.Request().Context(), p, np); err != nil {
		return errors.Wrap(err, "updating payment")
	}
	return redirect(ctx, flashSuccess, "Payment updated successfully.", "/payments")
}

func (cons *Console) deletePayment(ctx echo.Context) error {
	p, err := cons.getPayment(ctx)
	if err != nil {
		return err
	}
	if err := cons.deps.PaymentSvc.Delete(ctx.Request().Context(), p.ID); err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return redirect(ctx, flashSuccess, "Payment deleted successfully.", "/payments")
}

func (cons *Console) togglePaymentPaid(ctx echo.Context) error {
	p, err := cons.getPayment(ctx)
	if err != nil {
		return err
	}
	p, err = cons.deps.PaymentSvc.TogglePaid(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "toggling payment")
	}
	state := "unpaid"
	if p.IsPaid {
		state = "paid"
	}
	return redirect(ctx, flashSuccess, fmt.Sprintf("Payment marked as %s.", state), "/payments")
}

func (cons *Console) remindPayment(ctx echo.Context) error {
	p, err := cons.getPayment(ctx)
	if err != nil {
		return err
	}
	if p.IsPaid {
		return redirect(ctx, flashInfo, "Payment is already paid.", "/payments")
	}

	sent, err := cons.deps.NotificationSvc.SendPaymentReminder(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "sending payment reminder")
	}
	if !sent {
		return redirect(ctx, flashDanger, "The parent has no device registered for notifications.", "/payments")
	}
	return redirect(ctx, flashSuccess, "Payment reminder sent.", "/payments")
}

// remindDuePayments reminds the parents of every unpaid payment due within the configured days.
func (cons *Console) remindDuePayments(ctx echo.Context) error {
	days := cons.deps.Conf.Reminders.DaysAhead
	sent, err := cons.deps.NotificationSvc.SendDueReminders(ctx.Request().Context(), core.Today(), days)
	if err != nil {
		return errors.Wrap(err, "sending due reminders")
	}
	msg := fmt.Sprintf("%d payment reminders sent for payments due within %d days.", sent, days)
	return redirect(ctx, flashSuccess, msg, "/payments")
}
