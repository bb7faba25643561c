package notification_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/notification"
	testutil "github.com/trezcool/kia/tests"
)

func TestService_SendTest(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	parent := app.CreateParent(t, "Leila Haddad", "leila@kia.test")

	_, err := app.NotificationSvc.SendTest(ctx, parent, "", "")
	assert.Equal(t, notification.ErrNoToken, err)

	parent = app.SetFCMToken(t, parent, "device-1")
	res, err := app.NotificationSvc.SendTest(ctx, parent, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)

	sent := app.Push.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"device-1"}, sent[0].Tokens)
	assert.Equal(t, "Test Notification", sent[0].Title)
	assert.Equal(t, "This is a test notification from KIA Academy", sent[0].Body)
	assert.Equal(t, notification.TypeTest, sent[0].Data["type"])
}

func TestService_SendPaymentReminder(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	parent := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	st := app.CreateStudent(t, "Amira Haddad", parent.ID, 0)
	p := app.CreatePayment(t, st.ID, 1500.5, "2026-03-01", false)

	ok, err := app.NotificationSvc.SendPaymentReminder(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok, "parent has no device")
	assert.Empty(t, app.Push.Sent())

	app.SetFCMToken(t, parent, "device-1")
	ok, err = app.NotificationSvc.SendPaymentReminder(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	sent := app.Push.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "تذكير بالدفع - Payment Reminder", sent[0].Title)
	assert.Contains(t, sent[0].Body, "1500.5")
	assert.Contains(t, sent[0].Body, "Amira Haddad")
	assert.Equal(t, map[string]string{
		"type":       notification.TypePaymentReminder,
		"payment_id": "1",
		"student_id": "1",
		"amount":     "1500.5",
	}, sent[0].Data)
}

func TestService_SendNewMaterial(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	cls := app.CreateClasse(t, "Grade 1")
	other := app.CreateClasse(t, "Grade 2")

	leila := app.SetFCMToken(t, app.CreateParent(t, "Leila Haddad", "leila@kia.test"), "device-leila")
	omar := app.SetFCMToken(t, app.CreateParent(t, "Omar Said", "omar@kia.test"), "device-omar")
	noDevice := app.CreateParent(t, "Sara Ali", "sara@kia.test")
	outside := app.SetFCMToken(t, app.CreateParent(t, "Yusuf Noor", "yusuf@kia.test"), "device-yusuf")

	// two children of leila in the class: one notification
	app.CreateStudent(t, "Amira Haddad", leila.ID, cls.ID)
	app.CreateStudent(t, "Karim Haddad", leila.ID, cls.ID)
	app.CreateStudent(t, "Adam Said", omar.ID, cls.ID)
	app.CreateStudent(t, "Lina Ali", noDevice.ID, cls.ID)
	app.CreateStudent(t, "Zaid Noor", outside.ID, other.ID)

	sub := app.CreateSubject(t, "Maths", cls.ID)
	mat := app.CreateVideo(t, "Fractions", sub.ID, 0)

	ok, err := app.NotificationSvc.SendNewMaterial(ctx, mat.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	sent := app.Push.Sent()
	require.Len(t, sent, 1)
	assert.ElementsMatch(t, []string{"device-leila", "device-omar"}, sent[0].Tokens)
	assert.Equal(t, "محتوى تعليمي جديد - New Material", sent[0].Title)
	assert.Equal(t, "Maths", sent[0].Data["subject_name"])

	t.Run("empty class", func(t *testing.T) {
		app.Push.Reset()
		empty := app.CreateSubject(t, "Art", app.CreateClasse(t, "Grade 3").ID)
		mat := app.CreateVideo(t, "Colours", empty.ID, 0)

		ok, err := app.NotificationSvc.SendNewMaterial(ctx, mat.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, app.Push.Sent())
	})
}

func TestService_SendWelcome(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	parent := app.SetFCMToken(t, app.CreateParent(t, "Leila Haddad", "leila@kia.test"), "device-1")

	ok, err := app.NotificationSvc.SendWelcome(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	sent := app.Push.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "Leila Haddad")
	assert.Equal(t, notification.TypeWelcome, sent[0].Data["type"])
}

func TestService_SendDueReminders(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	parent := app.SetFCMToken(t, app.CreateParent(t, "Leila Haddad", "leila@kia.test"), "device-1")
	noDevice := app.CreateParent(t, "Omar Said", "omar@kia.test")
	st := app.CreateStudent(t, "Amira Haddad", parent.ID, 0)
	other := app.CreateStudent(t, "Adam Said", noDevice.ID, 0)

	overdue := app.CreatePayment(t, st.ID, 100, "2026-01-20", false)
	dueSoon := app.CreatePayment(t, st.ID, 200, "2026-02-03", false)
	app.CreatePayment(t, st.ID, 300, "2026-02-10", false) // too far ahead
	app.CreatePayment(t, st.ID, 400, "2026-02-02", true)  // paid
	app.CreatePayment(t, other.ID, 500, "2026-02-02", false)

	day, err := core.ParseDate("2026-02-01")
	require.NoError(t, err)
	sent, err := app.NotificationSvc.SendDueReminders(ctx, day, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	msgs := app.Push.Sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, strconv.Itoa(overdue.ID), msgs[0].Data["payment_id"], "earliest due first")
	assert.Equal(t, strconv.Itoa(dueSoon.ID), msgs[1].Data["payment_id"])
}
