package main

import (
	"context"
	"fmt"

	"github.com/trezcool/kia/core"
)

// remind sends the reminders of the unpaid payments due within days.
func (cli *commandLine) remind(days int) error {
	sent, err := cli.notifSvc.SendDueReminders(context.Background(), core.Today(), days)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d payment reminders sent\n", sent)
	return nil
}

func (cli *commandLine) fixFileURLs(baseURL string) error {
	n, err := cli.matSvc.FixFileURLs(context.Background(), baseURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d material file URLs fixed\n", n)
	return nil
}
