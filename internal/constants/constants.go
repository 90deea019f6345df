package constants

import "time"

// Daily scheduler
const (
	DailyTickCronSpec   = "5 0 * * *" // 00:05 UTC
	DailyTickJobTimeout = 20 * time.Minute

	// Rent for a period is generated this many days before it starts, so
	// reminders (at most 14 days ahead) always have a charge to point at.
	RentGenerationLeadDays = 14
)

// Automation thresholds that are not organization settings
const (
	MoveReminderDays = 3
)

// LeaseExpiryAlertDays are the days-before-end on which an expiry alert goes out.
var LeaseExpiryAlertDays = []int{60, 30, 7}

// Notification templates
const (
	TemplateRentReminder    = "rent_reminder"
	TemplatePaymentOverdue  = "payment_overdue"
	TemplateOverdueDigest   = "overdue_digest"
	TemplateLeaseExpiring   = "lease_expiring"
	TemplateMoveInReminder  = "move_in_reminder"
	TemplateMoveOutReminder = "move_out_reminder"
)

// Stripe metadata keys set by whoever creates the payment intent
const (
	StripeMetadataPaymentIDKey      = "payment_id"
	StripeMetadataOrganizationIDKey = "organization_id"
	ProcessorMethodCard             = "processor_card"
)

const (
	ReceiptNumberPrefix = "RCPT"
	TriggerTokenTTL     = 24 * time.Hour

	ProcessorLookupTimeout = 10 * time.Second
)
