package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Developmizer/Rental-Gates-sub002/internal/constants"
	"github.com/Developmizer/Rental-Gates-sub002/internal/models"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

// AutomationRunResult is what one daily run did for one organization.
type AutomationRunResult struct {
	OrganizationID     uuid.UUID `json:"organization_id"`
	AsOf               time.Time `json:"as_of"`
	AutomationDisabled bool      `json:"automation_disabled"`
	LeasesExpired      int       `json:"leases_expired"`
	UnitsRepaired      int       `json:"units_repaired"`
	RentReminders      int       `json:"rent_reminders"`
	OverdueAlerts      int       `json:"overdue_alerts"`
	OverdueDigestSent  bool      `json:"overdue_digest_sent"`
	LateFeesCreated    int       `json:"late_fees_created"`
	ExpiryAlerts       int       `json:"expiry_alerts"`
	MoveReminders      int       `json:"move_reminders"`
}

// AutomationService evaluates an organization's automation policy once per
// daily tick.
type AutomationService struct {
	orgRepo      repositories.OrganizationRepository
	settingsRepo repositories.AutomationSettingsRepository
	leaseRepo    repositories.LeaseRepository
	paymentRepo  repositories.PaymentRepository
	leases       *LeaseService
	charges      *ChargeGeneratorService
	notifier     Notifier
}

func NewAutomationService(
	orgRepo repositories.OrganizationRepository,
	settingsRepo repositories.AutomationSettingsRepository,
	leaseRepo repositories.LeaseRepository,
	paymentRepo repositories.PaymentRepository,
	leases *LeaseService,
	charges *ChargeGeneratorService,
	notifier Notifier,
) *AutomationService {
	return &AutomationService{
		orgRepo:      orgRepo,
		settingsRepo: settingsRepo,
		leaseRepo:    leaseRepo,
		paymentRepo:  paymentRepo,
		leases:       leases,
		charges:      charges,
		notifier:     notifier,
	}
}

// OrganizationToday is the calendar date of now in the organization's time
// zone, the default as-of for a triggered run.
func (s *AutomationService) OrganizationToday(ctx context.Context, orgID uuid.UUID, now time.Time) (time.Time, error) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return time.Time{}, storeErr("get organization", err)
	}
	if org == nil {
		return time.Time{}, utils.NotFoundf("organization %s", orgID)
	}
	return utils.DateOnly(now.In(org.Location())), nil
}

// automationRun carries per-run state so roster lookups happen once per lease.
type automationRun struct {
	*AutomationService
	org     *models.Organization
	today   time.Time
	log     *logrus.Entry
	rosters map[uuid.UUID][]Recipient
}

// RunDailyAutomations expires ended leases, repairs unit occupancy and then
// applies every enabled automation. Settings are read fresh on every call. A
// store or notifier outage aborts the run for this organization only.
func (s *AutomationService) RunDailyAutomations(
	ctx context.Context,
	orgID uuid.UUID,
	asOf time.Time,
) (*AutomationRunResult, error) {
	res := &AutomationRunResult{OrganizationID: orgID, AsOf: asOf}
	log := utils.OrgLogger(orgID.String())

	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, storeErr("get organization", err)
	}
	if org == nil {
		return nil, utils.NotFoundf("organization %s", orgID)
	}

	if res.LeasesExpired, err = s.leases.ExpireEndedLeases(ctx, orgID, asOf); err != nil {
		return res, err
	}
	if res.UnitsRepaired, err = s.leases.ReconcileUnits(ctx, orgID, asOf); err != nil {
		return res, err
	}

	settings, err := s.settingsRepo.GetByOrganizationID(ctx, orgID)
	if err != nil {
		return res, storeErr("get automation settings", err)
	}
	if settings == nil || !settings.Enabled {
		log.Debug("Automation disabled, skipping")
		res.AutomationDisabled = true
		return res, nil
	}

	run := &automationRun{
		AutomationService: s,
		org:               org,
		today:             utils.DateOnly(asOf),
		log:               log,
		rosters:           map[uuid.UUID][]Recipient{},
	}

	if settings.RentReminderEnabled {
		if res.RentReminders, err = run.sendRentReminders(ctx, settings.RentReminderDays); err != nil {
			return res, err
		}
	}
	if settings.OverdueAlertsEnabled {
		if res.OverdueAlerts, res.OverdueDigestSent, err = run.sendOverdueAlerts(ctx); err != nil {
			return res, err
		}
	}
	if settings.LateFeesEnabled {
		fees, err := s.charges.GenerateLateFees(ctx, settings, asOf)
		if err != nil {
			return res, err
		}
		res.LateFeesCreated = fees.Created
	}
	if settings.LeaseExpiryAlertsEnabled || settings.MoveRemindersEnabled {
		leases, err := s.leaseRepo.List(ctx, orgID,
			[]models.LeaseStatus{models.LeaseDraft, models.LeaseActive}, nil)
		if err != nil {
			return res, storeErr("list leases", err)
		}
		if settings.LeaseExpiryAlertsEnabled {
			if res.ExpiryAlerts, err = run.sendExpiryAlerts(ctx, leases); err != nil {
				return res, err
			}
		}
		if settings.MoveRemindersEnabled {
			if res.MoveReminders, err = run.sendMoveReminders(ctx, leases); err != nil {
				return res, err
			}
		}
	}

	log.WithFields(logrus.Fields{
		"expired":        res.LeasesExpired,
		"rent_reminders": res.RentReminders,
		"overdue_alerts": res.OverdueAlerts,
		"late_fees":      res.LateFeesCreated,
		"expiry_alerts":  res.ExpiryAlerts,
		"move_reminders": res.MoveReminders,
	}).Info("Daily automations complete")
	return res, nil
}

func (r *automationRun) sendRentReminders(ctx context.Context, daysAhead int) (int, error) {
	due := r.today.AddDate(0, 0, daysAhead)
	payments, err := r.paymentRepo.List(ctx, repositories.PaymentFilter{
		OrganizationID: r.org.ID,
		Types:          []models.PaymentType{models.PaymentRent},
		Statuses:       []models.PaymentStatus{models.PaymentPending, models.PaymentPartiallyPaid},
		From:           &due,
		To:             &due,
	})
	if err != nil {
		return 0, storeErr("list upcoming rent", err)
	}

	sent := 0
	for _, p := range payments {
		if p.DueDate == nil || !utils.DateOnly(*p.DueDate).Equal(due) {
			continue
		}
		ok, err := r.notifyLease(ctx, p.LeaseID, constants.TemplateRentReminder, map[string]string{
			"amount":   p.Outstanding().StringFixed(2),
			"period":   utils.Val(p.PeriodKey),
			"due_date": due.Format(time.DateOnly),
		})
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// sendOverdueAlerts notifies tenants on the first day a payment is overdue
// and sends the organization one digest of everything still overdue.
func (r *automationRun) sendOverdueAlerts(ctx context.Context) (int, bool, error) {
	yesterday := r.today.AddDate(0, 0, -1)
	overdue, err := r.paymentRepo.List(ctx, repositories.PaymentFilter{
		OrganizationID: r.org.ID,
		Statuses:       models.OpenPaymentStatuses,
		To:             &yesterday,
	})
	if err != nil {
		return 0, false, storeErr("list overdue payments", err)
	}

	sent := 0
	total := decimal.Zero
	count := 0
	for _, p := range overdue {
		if !p.IsOverdue(r.today) {
			continue
		}
		count++
		total = total.Add(p.Outstanding())
		if !utils.DateOnly(*p.DueDate).Equal(yesterday) {
			continue
		}
		ok, err := r.notifyLease(ctx, p.LeaseID, constants.TemplatePaymentOverdue, map[string]string{
			"amount":      p.Amount.StringFixed(2),
			"outstanding": p.Outstanding().StringFixed(2),
			"type":        string(p.Type),
			"due_date":    p.DueDate.Format(time.DateOnly),
		})
		if err != nil {
			return sent, false, err
		}
		if ok {
			sent++
		}
	}

	if count == 0 || r.org.BillingEmail == "" {
		return sent, false, nil
	}
	err = r.notify(ctx, constants.TemplateOverdueDigest, []Recipient{{
		Name:  r.org.Name,
		Email: r.org.BillingEmail,
		Phone: utils.Val(r.org.PhoneNumber),
	}}, map[string]string{
		"count": strconv.Itoa(count),
		"total": total.StringFixed(2),
		"as_of": r.today.Format(time.DateOnly),
	})
	return sent, err == nil, err
}

func (r *automationRun) sendExpiryAlerts(ctx context.Context, leases []*models.Lease) (int, error) {
	sent := 0
	for _, l := range leases {
		if l.Status != models.LeaseActive || l.IsMonthToMonth || l.EndDate == nil {
			continue
		}
		days := utils.DaysBetween(r.today, *l.EndDate)
		if !slices.Contains(constants.LeaseExpiryAlertDays, days) &&
			(l.NoticePeriodDays <= 0 || days != l.NoticePeriodDays) {
			continue
		}
		ok, err := r.notifyLease(ctx, l.ID, constants.TemplateLeaseExpiring, map[string]string{
			"days":     strconv.Itoa(days),
			"end_date": l.EndDate.Format(time.DateOnly),
		})
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

func (r *automationRun) sendMoveReminders(ctx context.Context, leases []*models.Lease) (int, error) {
	target := r.today.AddDate(0, 0, constants.MoveReminderDays)
	sent := 0
	for _, l := range leases {
		var template string
		var date time.Time
		switch {
		case l.StartDate != nil && utils.DateOnly(*l.StartDate).Equal(target):
			template, date = constants.TemplateMoveInReminder, *l.StartDate
		case l.Status == models.LeaseActive && !l.IsMonthToMonth &&
			l.EndDate != nil && utils.DateOnly(*l.EndDate).Equal(target):
			template, date = constants.TemplateMoveOutReminder, *l.EndDate
		default:
			continue
		}
		ok, err := r.notifyLease(ctx, l.ID, template, map[string]string{
			"date": date.Format(time.DateOnly),
		})
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// notifyLease sends a template to a lease's roster. ok is false when nobody
// on the roster can be reached.
func (r *automationRun) notifyLease(
	ctx context.Context,
	leaseID uuid.UUID,
	template string,
	fields map[string]string,
) (bool, error) {
	recipients, err := r.recipients(ctx, leaseID)
	if err != nil {
		return false, err
	}
	if len(recipients) == 0 {
		r.log.WithField("lease_id", leaseID).Debugf("No reachable tenant for %s", template)
		return false, nil
	}
	if err := r.notify(ctx, template, recipients, fields); err != nil {
		return false, err
	}
	return true, nil
}

func (r *automationRun) notify(ctx context.Context, template string, to []Recipient, fields map[string]string) error {
	err := r.notifier.Notify(ctx, r.org.ID, template, NotificationPayload{
		OrganizationName: r.org.Name,
		Recipients:       to,
		Fields:           fields,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoNotificationChannel):
		r.log.WithField("template", template).Debug("No notification channel configured, dropping")
		return nil
	default:
		return utils.Unavailable(fmt.Sprintf("notify %s", template), err)
	}
}

func (r *automationRun) recipients(ctx context.Context, leaseID uuid.UUID) ([]Recipient, error) {
	if cached, ok := r.rosters[leaseID]; ok {
		return cached, nil
	}
	roster, err := r.leaseRepo.ListTenants(ctx, leaseID)
	if err != nil {
		return nil, storeErr("list lease tenants", err)
	}
	var out []Recipient
	for _, lt := range roster {
		rc := Recipient{
			Name:  lt.Tenant.Name,
			Email: utils.Val(lt.Tenant.Email),
			Phone: utils.Val(lt.Tenant.PhoneNumber),
		}
		if rc.Email == "" && rc.Phone == "" {
			continue
		}
		out = append(out, rc)
	}
	r.rosters[leaseID] = out
	return out, nil
}
