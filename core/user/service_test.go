package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
	emailsvc "github.com/trezcool/kia/services/email"
	testutil "github.com/trezcool/kia/tests"
)

func TestService_Create(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	app.CreateParent(t, "Leila Haddad", "leila@kia.test")

	tests := []struct {
		name      string
		data      user.NewUser
		wantField string
	}{
		{
			name: "duplicate email (case-insensitive)",
			data: user.NewUser{
				Email: "LEILA@kia.test", FullName: "Other", Password: testutil.Password, PasswordConfirm: testutil.Password,
			},
			wantField: "email",
		},
		{
			name: "weak password",
			data: user.NewUser{
				Email: "weak@kia.test", FullName: "Weak", Password: "12345678", PasswordConfirm: "12345678",
			},
			wantField: "password",
		},
		{
			name: "password mismatch",
			data: user.NewUser{
				Email: "typo@kia.test", FullName: "Typo", Password: testutil.Password, PasswordConfirm: "nope",
			},
			wantField: "password_confirm",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(ctx, app.Validate, app.UserSvc)
			require.Error(t, err)
			assert.Contains(t, fieldsOf(err), tt.wantField)
		})
	}

	t.Run("valid parent", func(t *testing.T) {
		data := user.NewUser{
			Email:           "  Omar@KIA.test ",
			FullName:        "Omar Said",
			Password:        testutil.Password,
			PasswordConfirm: testutil.Password,
		}
		require.NoError(t, data.Validate(ctx, app.Validate, app.UserSvc))
		assert.Equal(t, user.RoleParent, data.Role, "role defaults to parent")

		usr, err := app.UserSvc.Create(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, "omar@kia.test", usr.Email)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(testutil.Password))

		got, err := app.UserSvc.GetByEmail(ctx, "OMAR@kia.test")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
	})
}

func TestService_Update(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	usr := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	app.CreateParent(t, "Omar Said", "omar@kia.test")

	t.Run("email taken", func(t *testing.T) {
		data := user.UpdateUser{Email: "omar@kia.test"}
		err := data.Validate(ctx, usr, app.Validate, app.UserSvc)
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("empty fields keep their value", func(t *testing.T) {
		inactive := false
		data := user.UpdateUser{Phone: "+966 500 000 000", IsActive: &inactive}
		require.NoError(t, data.Validate(ctx, usr, app.Validate, app.UserSvc))

		updated, err := app.UserSvc.Update(ctx, usr, data)
		require.NoError(t, err)
		assert.Equal(t, "leila@kia.test", updated.Email)
		assert.Equal(t, "Leila Haddad", updated.FullName)
		assert.Equal(t, "+966 500 000 000", updated.Phone)
		assert.False(t, updated.IsActive)
		assert.NoError(t, updated.CheckPassword(testutil.Password), "password unchanged")
	})
}

func TestService_PasswordReset(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	usr := app.CreateParent(t, "Leila Haddad", "leila@kia.test")

	t.Run("unknown email", func(t *testing.T) {
		err := app.UserSvc.RequestPasswordReset(ctx, "nobody@kia.test")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("mail sent", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		require.NoError(t, app.UserSvc.RequestPasswordReset(ctx, "Leila@kia.test"))

		msg, ok := emailsvc.LastSentMessage()
		require.True(t, ok)
		assert.Equal(t, "Password Reset", msg.Subject)
		assert.Equal(t, "leila@kia.test", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "uid="+user.EncodeUID(usr))
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := app.UserSvc.ResetPassword(ctx, user.ResetUserPassword{
			UID: user.EncodeUID(usr), Token: "bad-token", Password: "N3w-Passw0rd!", PasswordConfirm: "N3w-Passw0rd!",
		})
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("password reset", func(t *testing.T) {
		token, err := app.UserSvc.Tokens().MakeToken(usr)
		require.NoError(t, err)
		data := user.ResetUserPassword{
			UID: user.EncodeUID(usr), Token: token, Password: "N3w-Passw0rd!", PasswordConfirm: "N3w-Passw0rd!",
		}
		require.NoError(t, data.Validate(app.Validate))

		updated, err := app.UserSvc.ResetPassword(ctx, data)
		require.NoError(t, err)
		assert.NoError(t, updated.CheckPassword("N3w-Passw0rd!"))

		_, err = app.UserSvc.ResetPassword(ctx, data)
		assert.True(t, core.IsValidationError(err), "a token cannot be reused")
	})
}

func fieldsOf(err error) []string {
	var fields []string
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			fields = append(fields, fe.Field())
		}
	case *core.ValidationError:
		for _, fe := range e.Fields {
			fields = append(fields, fe.Field)
		}
	}
	return fields
}
