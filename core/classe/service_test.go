package classe_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/subject"
	testutil "github.com/trezcool/kia/tests"
)

func TestNewClasse_Validate(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	kg1 := app.CreateClasse(t, "KG1")

	tests := []struct {
		name       string
		data       classe.NewClasse
		excludedID []int
		wantErr    bool
	}{
		{name: "blank name", data: classe.NewClasse{Name: "   "}, wantErr: true},
		{name: "name too long", data: classe.NewClasse{Name: strings.Repeat("a", 51)}, wantErr: true},
		{name: "name taken", data: classe.NewClasse{Name: " kg1 "}, wantErr: true},
		{name: "same class", data: classe.NewClasse{Name: "KG1", Description: "First year"}, excludedID: []int{kg1.ID}},
		{name: "valid", data: classe.NewClasse{Name: "KG2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(ctx, app.Validate, app.ClasseSvc, tt.excludedID...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("taken name is a field error", func(t *testing.T) {
		data := classe.NewClasse{Name: "kg1"}
		err := data.Validate(ctx, app.Validate, app.ClasseSvc)
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, "name", verr.Fields[0].Field)
	})
}

func TestService_Delete(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	grade1 := app.CreateClasse(t, "Grade 1")
	parent := app.CreateParent(t, "Leila Haddad", "leila@kia.test")
	amira := app.CreateStudent(t, "Amira Haddad", parent.ID, grade1.ID)
	maths := app.CreateSubject(t, "Maths", grade1.ID)

	cls, err := app.ClasseSvc.GetByID(ctx, grade1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cls.StudentCount)
	assert.Equal(t, 1, cls.SubjectCount)

	require.NoError(t, app.ClasseSvc.Delete(ctx, grade1.ID))

	_, err = app.ClasseSvc.GetByID(ctx, grade1.ID)
	assert.Equal(t, classe.ErrNotFound, errors.Cause(err))
	_, err = app.SubjectSvc.GetByID(ctx, maths.ID)
	assert.Equal(t, subject.ErrNotFound, errors.Cause(err))

	st, err := app.StudentSvc.GetByID(ctx, amira.ID)
	require.NoError(t, err)
	assert.False(t, st.ClassID.Valid)
}
