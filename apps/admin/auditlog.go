package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/trezcool/shule/core/audit"
)

func (cli *commandLine) auditLog(filter audit.QueryFilter) error {
	entries, err := cli.auditSvc.Query(context.Background(), filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tUSER\tACTION\tDETAILS")
	for _, e := range entries {
		usr := e.UserID
		if usr == "" {
			usr = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), usr, e.Action, e.Details)
	}
	return w.Flush()
}
