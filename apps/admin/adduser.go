package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/user"
)

// addUser validates nu like the API does, then creates the user.
func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return describe(err, cli.translator)
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s created: %s\n", usr.Username, usr.ID)
	return nil
}
