package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Developmizer/Rental-Gates-sub002/internal/config"
	"github.com/Developmizer/Rental-Gates-sub002/internal/constants"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type Recipient struct {
	Name  string
	Email string
	Phone string
}

// NotificationPayload is what a template is rendered from.
type NotificationPayload struct {
	OrganizationName string
	Recipients       []Recipient
	Fields           map[string]string
}

// Notifier delivers reminders and alerts. Delivery problems for individual
// recipients are the sender's concern; an error means the sender itself is
// unavailable.
type Notifier interface {
	Notify(ctx context.Context, orgID uuid.UUID, template string, payload NotificationPayload) error
}

var ErrNoNotificationChannel = errors.New("no notification channel configured")

type messageTemplate struct {
	subject string
	body    string
}

// Bodies use {field} placeholders filled from NotificationPayload.Fields.
var messageTemplates = map[string]messageTemplate{
	constants.TemplateRentReminder: {
		subject: "Rent reminder: {amount} due {due_date}",
		body:    "Hi {name}, this is a reminder that {amount} for {period} is due on {due_date}.",
	},
	constants.TemplatePaymentOverdue: {
		subject: "Payment overdue: {amount} was due {due_date}",
		body:    "Hi {name}, our records show {outstanding} of a {type} charge due on {due_date} is still unpaid.",
	},
	constants.TemplateOverdueDigest: {
		subject: "{count} overdue payments totaling {total}",
		body:    "As of {as_of} there are {count} overdue payments totaling {total}.",
	},
	constants.TemplateLeaseExpiring: {
		subject: "Lease ending in {days} days",
		body:    "Hi {name}, your lease ends on {end_date} ({days} days from now). Please reach out about renewal.",
	},
	constants.TemplateMoveInReminder: {
		subject: "Move-in on {date}",
		body:    "Hi {name}, your move-in is scheduled for {date}.",
	},
	constants.TemplateMoveOutReminder: {
		subject: "Move-out on {date}",
		body:    "Hi {name}, your lease ends and move-out is scheduled for {date}.",
	},
}

func renderTemplate(tmpl string, name string, fields map[string]string) string {
	pairs := []string{"{name}", name}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", fields[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

const notificationEmailHTML = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2 style="margin:0 0 12px">%s</h2>
<p>%s</p>
<p style="color:#888;font-size:12px">Sent by %s</p>
</body></html>`

type SendGridTwilioNotifier struct {
	sgClient     *sendgrid.Client
	twClient     *twilio.RestClient
	fromEmail    string
	fromPhone    string
	sandboxEmail bool
}

// NewSendGridTwilioNotifier leaves a channel nil when its credentials are missing.
func NewSendGridTwilioNotifier(cfg *config.Config) *SendGridTwilioNotifier {
	n := &SendGridTwilioNotifier{
		fromEmail:    cfg.LDFlag_SendgridFromEmail,
		fromPhone:    cfg.LDFlag_TwilioFromPhone,
		sandboxEmail: cfg.LDFlag_SendgridSandboxMode,
	}
	if cfg.SendGridAPIKey != "" {
		n.sgClient = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		n.twClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	}
	return n
}

func (n *SendGridTwilioNotifier) Notify(
	ctx context.Context,
	orgID uuid.UUID,
	template string,
	payload NotificationPayload,
) error {
	if n.sgClient == nil && n.twClient == nil {
		return ErrNoNotificationChannel
	}
	tmpl, ok := messageTemplates[template]
	if !ok {
		return fmt.Errorf("unknown notification template %q", template)
	}
	log := utils.OrgLogger(orgID.String()).WithField("template", template)

	for _, r := range payload.Recipients {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		subject := renderTemplate(tmpl.subject, r.Name, payload.Fields)
		body := renderTemplate(tmpl.body, r.Name, payload.Fields)

		// ---------- Twilio SMS ----------
		if n.twClient != nil && r.Phone != "" {
			params := &twilioApi.CreateMessageParams{}
			params.SetTo(r.Phone)
			params.SetFrom(n.fromPhone)
			params.SetBody(subject + " :: " + body)
			if _, smsErr := n.twClient.Api.CreateMessage(params); smsErr != nil {
				log.WithError(smsErr).Warnf("Failed to send SMS to %s", r.Name)
			}
		}

		// ---------- SendGrid Email ----------
		if n.sgClient != nil && r.Email != "" {
			from := mail.NewEmail(payload.OrganizationName, n.fromEmail)
			to := mail.NewEmail(r.Name, r.Email)
			htmlBody := fmt.Sprintf(
				notificationEmailHTML,
				html.EscapeString(subject),
				html.EscapeString(body),
				html.EscapeString(payload.OrganizationName),
			)
			msg := mail.NewSingleEmail(from, subject, to, body, htmlBody)
			msg.TrackingSettings = &mail.TrackingSettings{
				ClickTracking: &mail.ClickTrackingSetting{
					Enable: utils.Ptr(false),
				},
			}
			if n.sandboxEmail {
				ms := mail.NewMailSettings()
				ms.SetSandboxMode(mail.NewSetting(true))
				msg.MailSettings = ms
			}
			if _, sgErr := n.sgClient.Send(msg); sgErr != nil {
				log.WithError(sgErr).Warnf("Email send failure to %s", r.Name)
			}
		}
	}
	log.Debugf("Dispatched notification to %d recipients", len(payload.Recipients))
	return nil
}
