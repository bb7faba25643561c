package main

import (
	"context"
	"fmt"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}

	uu := user.UpdateUser{Phone: usr.Phone, Password: pwd, PasswordConfirm: pwd}
	if err := uu.Validate(ctx, usr, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	if _, err := cli.usrSvc.Update(ctx, usr, uu); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %s updated\n", usr.Email)
	return nil
}
