package routes

const (
	Health = "/health"

	// Leases
	Leases               = "/api/v1/orgs/{org_id}/leases"
	Lease                = "/api/v1/orgs/{org_id}/leases/{lease_id}"
	LeaseTenants         = "/api/v1/orgs/{org_id}/leases/{lease_id}/tenants"
	LeaseTenant          = "/api/v1/orgs/{org_id}/leases/{lease_id}/tenants/{tenant_id}"
	LeaseActivate        = "/api/v1/orgs/{org_id}/leases/{lease_id}/activate"
	LeaseTerminate       = "/api/v1/orgs/{org_id}/leases/{lease_id}/terminate"
	LeaseRenew           = "/api/v1/orgs/{org_id}/leases/{lease_id}/renew"
	LeaseStartRenewal    = "/api/v1/orgs/{org_id}/leases/{lease_id}/start-renewal"
	UnitAvailability     = "/api/v1/orgs/{org_id}/units/{unit_id}/availability"
	Unit                 = "/api/v1/orgs/{org_id}/units/{unit_id}"
	Payments             = "/api/v1/orgs/{org_id}/payments"
	Payment              = "/api/v1/orgs/{org_id}/payments/{payment_id}"
	PaymentRecord        = "/api/v1/orgs/{org_id}/payments/{payment_id}/record"
	PaymentProcess       = "/api/v1/orgs/{org_id}/payments/{payment_id}/process"
	PaymentRefund        = "/api/v1/orgs/{org_id}/payments/{payment_id}/refund"
	PaymentCancel        = "/api/v1/orgs/{org_id}/payments/{payment_id}/cancel"
	PaymentReceipt       = "/api/v1/orgs/{org_id}/payments/{payment_id}/receipt"
	AutomationSettings   = "/api/v1/orgs/{org_id}/automation-settings"
	Stats                = "/api/v1/orgs/{org_id}/stats"
	BillingStripeWebhook = "/api/v1/billing/stripe/webhook"

	// Scheduler triggers
	TriggerRunAutomations  = "/api/v1/internal/orgs/{org_id}/automations/run"
	TriggerGenerateCharges = "/api/v1/internal/orgs/{org_id}/charges/generate"
	TriggerDailyTick       = "/api/v1/internal/scheduler/tick"
)

// Path variables
const (
	VarOrgID     = "org_id"
	VarLeaseID   = "lease_id"
	VarTenantID  = "tenant_id"
	VarUnitID    = "unit_id"
	VarPaymentID = "payment_id"
)
