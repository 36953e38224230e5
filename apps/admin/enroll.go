package main

import (
	"context"
)

func (cli *commandLine) enroll(email, courseID string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.Enroll(ctx, usr, courseID)
	return err
}
