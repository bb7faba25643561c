package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/classe"
	"github.com/trezcool/kia/core/material"
	"github.com/trezcool/kia/core/notification"
	"github.com/trezcool/kia/core/subject"
	"github.com/trezcool/kia/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB // nil with the in-memory database
	conf     *core.Config
	validate *validator.Validate
	out      io.Writer

	usrSvc   user.Service
	clsSvc   classe.Service
	subSvc   subject.Service
	matSvc   material.Service
	notifSvc notification.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                 - run a goose command (up, down, status, redo, version...)")
	fmt.Fprintln(cli.out, "  createadmin -email EMAIL -name NAME    - create an admin, or promote an existing user")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL             - reset a user's password")
	fmt.Fprintln(cli.out, "  seed [-email EMAIL -name NAME]         - create the sample classes and subjects (and an admin)")
	fmt.Fprintln(cli.out, "  remind [-days N]                       - send the reminders of payments due within N days")
	fmt.Fprintln(cli.out, "  fixfileurls -base-url URL              - make relative material file URLs absolute")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	createAdminName := createAdminCmd.String("name", "", "The admin's full name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedEmail := seedCmd.String("email", "", "Also create an admin with this email. The password will be prompted next.")
	seedName := seedCmd.String("name", "Administrator", "The admin's full name.")

	remindCmd := flag.NewFlagSet("remind", flag.ContinueOnError)
	remindDays := remindCmd.Int("days", cli.conf.Reminders.DaysAhead, "Remind payments due within this many days.")

	fixURLsCmd := flag.NewFlagSet("fixfileurls", flag.ContinueOnError)
	fixURLsBase := fixURLsCmd.String("base-url", cli.conf.BaseURL, "The base URL prefixed to relative file URLs.")

	for _, fs := range []*flag.FlagSet{createAdminCmd, resetPasswordCmd, seedCmd, remindCmd, fixURLsCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminEmail == "" || *createAdminName == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminEmail, *createAdminName, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedEmail != "" {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				seedCmd.Usage()
				return errHelp
			}
			if err := cli.createAdmin(*seedEmail, *seedName, pwd); err != nil {
				return err
			}
		}
		return cli.seed()

	case "remind":
		if err := remindCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *remindDays < 0 {
			remindCmd.Usage()
			return errHelp
		}
		return cli.remind(*remindDays)

	case "fixfileurls":
		if err := fixURLsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.fixFileURLs(*fixURLsBase)

	default:
		cli.printUsage()
		return errHelp
	}
}
