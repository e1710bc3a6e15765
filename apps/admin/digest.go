package main

import (
	"context"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// digest sends the agenda digests of date (in the agenda time zone) right away.
func (cli *commandLine) digest(date string) error {
	loc := cli.conf.Agenda.Location()
	day := cli.nowFunc().In(loc)
	if date != "" {
		var err error
		if day, err = time.ParseInLocation(dateLayout, date, loc); err != nil {
			return fmt.Errorf("date must be of form YYYY-MM-DD (got '%s')", date)
		}
	}

	sent, err := cli.agendaSvc.SendDigests(context.Background(), day)
	if err != nil {
		return err
	}
	fmt.Printf("%d digest(s) sent for %s\n", sent, day.Format(dateLayout))
	return nil
}
