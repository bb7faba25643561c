package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core"
	testutil "github.com/trezcool/kia/tests"
)

func TestScheduler_AddDueReminders(t *testing.T) {
	app := testutil.NewApp(t)
	s := New(app.NotificationSvc, app.Logger)

	assert.Error(t, s.AddDueReminders("every morning", 3))
	require.NoError(t, s.AddDueReminders("0 8 * * *", 3))
	assert.Len(t, s.cron.Entries(), 1)

	s.Start()
	s.Stop()
}

func TestScheduler_RunDueReminders(t *testing.T) {
	app := testutil.NewApp(t)
	parent := app.SetFCMToken(t, app.CreateParent(t, "Leila Haddad", "leila@kia.test"), "device-1")
	st := app.CreateStudent(t, "Amira Haddad", parent.ID, 0)
	today := core.Today()
	app.CreatePayment(t, st.ID, 100, today.AddDays(1).String(), false)
	app.CreatePayment(t, st.ID, 100, today.AddDays(20).String(), false)

	New(app.NotificationSvc, app.Logger).RunDueReminders(3)
	assert.Len(t, app.Push.Sent(), 1)
}
