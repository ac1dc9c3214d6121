package main

import (
	"context"
	"time"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/user"
)

// createSuperuser updates or creates an active superuser account.
func (cli *commandLine) createSuperuser(email, name, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Email:     email,
			CreatedAt: now,
		}
	}
	if name != "" {
		usr.FullName = name
	}
	usr.IsActive = true
	usr.IsSuperuser = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
