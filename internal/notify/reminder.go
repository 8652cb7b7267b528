package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const ReminderTag = "renewal-reminder"

type ReminderData struct {
	Name         string
	Plan         string
	RenewalDate  time.Time
	DashboardURL string
}

var reminderTmpl = template.Must(template.New("reminder").Parse(`<div style="font-family:Arial,Helvetica,sans-serif;background:#f9f9f9;padding:20px;border-radius:10px;max-width:500px;margin:auto;">
  <h2 style="color:#333;text-align:center;">Subscription Reminder</h2>
  <p style="font-size:15px;color:#555;">Hey <strong>{{.Name}}</strong>,</p>
  <p style="font-size:15px;color:#555;">
    This is a quick reminder that your <strong>{{.Plan}}</strong> subscription will renew on
    <strong>{{.Date}}</strong>.
  </p>
  <p style="font-size:15px;color:#555;">
    If you would like to modify or cancel this subscription, please visit your account dashboard before the renewal date.
  </p>
  <div style="text-align:center;margin-top:20px;">
    <a href="{{.Link}}" style="background:#007bff;color:white;padding:10px 20px;border-radius:6px;text-decoration:none;font-weight:bold;">Go to Dashboard</a>
  </div>
  <p style="font-size:13px;color:#888;text-align:center;margin-top:30px;">The Subs Manager Team</p>
</div>
`))

// DashboardLink appends /dashboard to the client base URL.
func DashboardLink(clientURL string) string {
	return strings.TrimRight(clientURL, "/") + "/dashboard"
}

// RenderReminder builds the reminder message for one subscription.
func RenderReminder(to string, data ReminderData) (Message, error) {
	var buf bytes.Buffer
	err := reminderTmpl.Execute(&buf, struct {
		Name string
		Plan string
		Date string
		Link string
	}{
		Name: data.Name,
		Plan: data.Plan,
		Date: data.RenewalDate.Format("January 2, 2006"),
		Link: DashboardLink(data.DashboardURL),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render reminder: %w", err)
	}

	return Message{
		To:       to,
		Subject:  fmt.Sprintf("Reminder: Your %s subscription renews soon", data.Plan),
		HTMLBody: buf.String(),
		Tag:      ReminderTag,
	}, nil
}
