package console

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
)

func registerUsers(g *echo.Group, cons *Console) {
	ug := g.Group("/users")
	ug.GET("", cons.listUsers)
	ug.GET("/create", cons.createUserPage)
	ug.POST("/create", cons.createUser)
	ug.GET("/:id/edit", cons.editUserPage)
	ug.POST("/:id/edit", cons.editUser)
	ug.POST("/:id/delete", cons.deleteUser)
}

type userList struct {
	Users  []user.User
	Roles  []user.Role
	Role   string
	Search string
}

type userForm struct {
	ID       int
	Email    string
	FullName string
	Phone    string
	Role     string
	IsActive bool
	Roles    []user.Role
}

func (cons *Console) listUsers(ctx echo.Context) error {
	role := ctx.QueryParam("role")
	switch role {
	case "":
		role = user.RoleParent
	case "all":
		role = ""
	}
	filter := &user.QueryFilter{Role: role, Search: ctx.QueryParam("q")}
	filter.Clean()

	users, err := cons.deps.UserSvc.Query(
		ctx.Request().Context(), filter, []core.DBOrdering{{Field: "created_at", Ascending: false}})
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if role == "" {
		role = "all"
	}
	data := userList{Users: users, Roles: user.Roles, Role: role, Search: filter.Search}
	return cons.render(ctx, http.StatusOK, "users", "Users", nil, data, nil)
}

func (cons *Console) createUserPage(ctx echo.Context) error {
	form := userForm{Role: user.RoleParent, IsActive: true, Roles: user.Roles}
	return cons.render(ctx, http.StatusOK, "user_form", "Create User", form, nil, nil)
}

func (cons *Console) createUser(ctx echo.Context) error {
	var nu user.NewUser
	err := bindForm(ctx, &nu)
	if err == nil {
		err = nu.Validate(ctx.Request().Context(), cons.deps.Validate, cons.deps.UserSvc)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return err
		}
		form := userForm{Email: nu.Email, FullName: nu.FullName, Phone: nu.Phone, Role: nu.Role, IsActive: true, Roles: user.Roles}
		return cons.render(ctx, http.StatusBadRequest, "user_form", "Create User", form, nil, errs)
	}

	usr, err := cons.deps.UserSvc.Create(ctx.Request().Context(), nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	if !checked(ctx, "is_active") {
		inactive := false
		if _, err := cons.deps.UserSvc.Update(ctx.Request().Context(), usr, user.UpdateUser{
			Email: usr.Email, FullName: usr.FullName, Phone: usr.Phone, Role: usr.Role, IsActive: &inactive,
		}); err != nil {
			return errors.Wrap(err, "deactivating user")
		}
	}
	if usr.IsParent() {
		cons.deps.UserSvc.SendWelcomeMail(usr)
	}
	return redirect(ctx, flashSuccess, "User created successfully.", "/users")
}

func (cons *Console) getUser(ctx echo.Context) (user.User, error) {
	id, err := idParam(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := cons.deps.UserSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return usr, nil
}

func (cons *Console) editUserPage(ctx echo.Context) error {
	usr, err := cons.getUser(ctx)
	if err != nil {
		return err
	}
	form := userForm{
		ID:       usr.ID,
		Email:    usr.Email,
		FullName: usr.FullName,
		Phone:    usr.Phone,
		Role:     usr.Role,
		IsActive: usr.IsActive,
		Roles:    user.Roles,
	}
	return cons.render(ctx, http.StatusOK, "user_form", "Edit User", form, nil, nil)
}

func (cons *Console) editUser(ctx echo.Context) error {
	usr, err := cons.getUser(ctx)
	if err != nil {
		return err
	}

	var uu user.UpdateUser
	err = bindForm(ctx, &uu)
	if err == nil {
		active := checked(ctx, "is_active")
		uu.IsActive = &active
		err = uu.Validate(ctx.Request().Context(), usr, cons.deps.Validate, cons.deps.UserSvc)
	}
	if err != nil {
		errs, ok := cons.formErrors(err)
		if !ok {
			return err
		}
		form := userForm{
			ID:       usr.ID,
			Email:    uu.Email,
			FullName: uu.FullName,
			Phone:    uu.Phone,
			Role:     uu.Role,
			IsActive: uu.IsActive != nil && *uu.IsActive,
			Roles:    user.Roles,
		}
		return cons.render(ctx, http.StatusBadRequest, "user_form", "Edit User", form, nil, errs)
	}

	if _, err := cons.deps.UserSvc.Update(ctx.Request().Context(), usr, uu); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return redirect(ctx, flashSuccess, "User updated successfully.", "/users")
}

func (cons *Console) deleteUser(ctx echo.Context) error {
	usr, err := cons.getUser(ctx)
	if err != nil {
		return err
	}
	if usr.ID == contextAdmin(ctx).ID {
		return redirect(ctx, flashDanger, "You cannot delete your own account.", "/users")
	}
	if _, err := cons.deps.UserSvc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return redirect(ctx, flashSuccess, "User deleted successfully.", "/users")
}
