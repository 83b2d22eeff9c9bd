// Package notify tells staff about new contact enquiries.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"globesuggest/api/models"
)

// LogNotifier writes the notification that would be mailed to Recipients to
// the process log. No mail is sent.
type LogNotifier struct {
	Recipients []string
}

func NewLogNotifier(recipients []string) *LogNotifier {
	return &LogNotifier{Recipients: recipients}
}

func (n *LogNotifier) NotifyContact(_ context.Context, e models.ContactEnquiry) error {
	if len(n.Recipients) == 0 {
		log.Printf("notify: contact enquiry %d stored; no recipients configured", e.ID)
		return nil
	}
	log.Printf("notify: to=%s subject=%q\n%s", strings.Join(n.Recipients, ","), Subject(e), Body(e))
	return nil
}

// Subject is the notification subject line for e.
func Subject(e models.ContactEnquiry) string {
	return "New contact enquiry from " + e.Name
}

// Body is the plain-text notification for e.
func Body(e models.ContactEnquiry) string {
	lines := []string{
		"A new contact enquiry has been submitted on globesuggest:",
		"",
		"Name   : " + e.Name,
		"Email  : " + e.Email,
		"Phone  : " + e.Phone,
		"",
		"Message:",
		e.Message,
		"",
		fmt.Sprintf("Enquiry ID : %d", e.ID),
		"Submitted at : " + e.SubmittedAt.Format("2006-01-02 15:04:05"),
	}
	return strings.Join(lines, "\n")
}
