package main

import (
	"context"
	"fmt"
)

// addUser creates an active tutor, or reactivates the one with this email under the new password.
func (cli *commandLine) addUser(name, email, pwd string) error {
	usr, err := cli.usrSvc.AddOrUpdate(context.Background(), name, email, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("User %s (%s) is ready\n", usr.Email, usr.ID)
	return nil
}
