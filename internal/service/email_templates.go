package service

import (
	"fmt"
	"time"
)

func welcomeEmailTemplate(appURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi,

Your account is ready.

Set a goal and a deadline, then photograph your combination lock. The photo stays hidden
until you show us proof that you made it.

Get started: %s

Best,
The %s Team`, appURL, appName)

	return subject, body
}

func deadlinePassedEmailTemplate(goal string, deadline time.Time, appURL, appName string) (string, string) {
	subject := fmt.Sprintf("Time's up on your %s goal", appName)
	body := fmt.Sprintf(`Hi,

The deadline for your goal passed on %s (UTC):

  %s

Your code stays locked. You can still look at your goal here: %s

Best,
The %s Team`, deadline.UTC().Format("January 2, 2006 at 15:04"), goal, appURL, appName)

	return subject, body
}
