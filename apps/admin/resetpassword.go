package main

import (
	"strings"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	uname = core.CleanString(uname, true /* lower */)

	var usr user.User
	var err error
	if strings.Contains(uname, "@") {
		usr, err = cli.usrRepo.GetUserByEmail(uname)
	} else {
		usr, err = cli.usrRepo.GetUserByUsername(uname)
	}
	if err != nil {
		return err
	}

	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateUser(usr)
	return err
}
