package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
)

// createAdmin creates an active admin, or promotes and re-activates the user owning email.
func (cli *commandLine) createAdmin(email, name, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		nu := user.NewUser{
			Email:           email,
			FullName:        name,
			Role:            user.RoleAdmin,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
		if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
			return err
		}
		if usr, err = cli.usrSvc.Create(ctx, nu); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "admin %s created\n", usr.Email)
		return nil
	}

	active := true
	uu := user.UpdateUser{
		Email:           usr.Email,
		FullName:        name,
		Phone:           usr.Phone,
		Role:            user.RoleAdmin,
		IsActive:        &active,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := uu.Validate(ctx, usr, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	if _, err := cli.usrSvc.Update(ctx, usr, uu); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s is now an admin\n", usr.Email)
	return nil
}
