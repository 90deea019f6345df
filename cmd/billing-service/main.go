package main

import (
	"context"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/Developmizer/Rental-Gates-sub002/internal/app"
	"github.com/Developmizer/Rental-Gates-sub002/internal/config"
	"github.com/Developmizer/Rental-Gates-sub002/internal/constants"
	"github.com/Developmizer/Rental-Gates-sub002/internal/controllers"
	"github.com/Developmizer/Rental-Gates-sub002/internal/middleware"
	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/routes"
	"github.com/Developmizer/Rental-Gates-sub002/internal/services"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize billing-service:", err)
	}
	defer application.Close()

	// Repositories
	orgRepo := repositories.NewOrganizationRepository(application.DB)
	unitRepo := repositories.NewUnitRepository(application.DB)
	tenantRepo := repositories.NewTenantRepository(application.DB)
	leaseRepo := repositories.NewLeaseRepository(application.DB)
	paymentRepo := repositories.NewPaymentRepository(application.DB)
	settingsRepo := repositories.NewAutomationSettingsRepository(application.DB)
	receiptRepo := repositories.NewReceiptRepository(application.DB)

	// Services
	notifier := services.NewSendGridTwilioNotifier(cfg)
	processor := services.NewStripeProcessorClient(cfg.StripeSecretKey, constants.ProcessorLookupTimeout)
	unitService := services.NewUnitAvailabilityService(unitRepo, leaseRepo)
	paymentService := services.NewPaymentService(paymentRepo, leaseRepo)
	leaseService := services.NewLeaseService(leaseRepo, tenantRepo, unitService, paymentService, cfg.LDFlag_RequirePrimaryTenant)
	chargeService := services.NewChargeGeneratorService(leaseRepo, paymentRepo)
	settingsService := services.NewAutomationSettingsService(settingsRepo)
	automationService := services.NewAutomationService(
		orgRepo, settingsRepo, leaseRepo, paymentRepo, leaseService, chargeService, notifier,
	)
	schedulerService := services.NewSchedulerService(orgRepo, chargeService, automationService)
	statsService := services.NewStatsService(paymentRepo)
	receiptService := services.NewReceiptService(receiptRepo, paymentService)
	processorEvents := services.NewProcessorEventService(paymentService, processor)

	if cfg.LDFlag_SeedDbWithTestData {
		if err := app.SeedAllTestData(context.Background(), orgRepo, unitRepo, tenantRepo, leaseService, settingsService); err != nil {
			utils.Logger.Fatal("Failed to seed demo data:", err)
		}
	}

	// Controllers
	healthController := controllers.NewHealthController(application)
	leaseController := controllers.NewLeaseController(leaseService)
	unitController := controllers.NewUnitController(unitService)
	paymentController := controllers.NewPaymentController(paymentService, receiptService)
	settingsController := controllers.NewAutomationSettingsController(settingsService)
	statsController := controllers.NewStatsController(statsService)
	triggerController := controllers.NewTriggerController(automationService, chargeService, schedulerService)
	stripeWebhookController := controllers.NewStripeWebhookController(cfg.StripeWebhookSecret, processorEvents)

	// Router setup
	router := mux.NewRouter()

	// Public Routes
	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.BillingStripeWebhook, stripeWebhookController.WebhookHandler).Methods(http.MethodPost)

	// Operator API; end-user authentication happens upstream
	router.HandleFunc(routes.Leases, leaseController.CreateLeaseHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.Leases, leaseController.ListLeasesHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.Lease, leaseController.GetLeaseHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.Lease, leaseController.UpdateLeaseHandler).Methods(http.MethodPatch)
	router.HandleFunc(routes.LeaseTenants, leaseController.AddTenantHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.LeaseTenant, leaseController.RemoveTenantHandler).Methods(http.MethodDelete)
	router.HandleFunc(routes.LeaseActivate, leaseController.ActivateLeaseHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.LeaseTerminate, leaseController.TerminateLeaseHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.LeaseRenew, leaseController.RenewLeaseHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.LeaseStartRenewal, leaseController.StartRenewalHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.Unit, unitController.GetUnitHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.UnitAvailability, unitController.SetAvailabilityHandler).Methods(http.MethodPut)
	router.HandleFunc(routes.Payments, paymentController.CreateChargeHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.Payments, paymentController.ListPaymentsHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.Payment, paymentController.GetPaymentHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.PaymentRecord, paymentController.RecordPaymentHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.PaymentProcess, paymentController.StartProcessingHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.PaymentRefund, paymentController.RefundPaymentHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.PaymentCancel, paymentController.CancelPaymentHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.PaymentReceipt, paymentController.IssueReceiptHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.AutomationSettings, settingsController.GetSettingsHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.AutomationSettings, settingsController.UpsertSettingsHandler).Methods(http.MethodPut)
	router.HandleFunc(routes.Stats, statsController.GetStatsHandler).Methods(http.MethodGet)

	// Secured routes for scheduler triggers
	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.TriggerAuthMiddleware(cfg.TriggerJWTSecret))
	secured.HandleFunc(routes.TriggerRunAutomations, triggerController.RunAutomationsHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.TriggerGenerateCharges, triggerController.GenerateChargesHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.TriggerDailyTick, triggerController.DailyTickHandler).Methods(http.MethodPost)

	// Cron job setup
	c := cron.New(cron.WithLocation(time.UTC))

	if cfg.LDFlag_SchedulerEnabled {
		_, err = c.AddFunc(constants.DailyTickCronSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), constants.DailyTickJobTimeout)
			defer cancel()
			utils.Logger.Info("Starting daily billing tick cron job...")
			res, err := schedulerService.RunDailyTick(ctx, time.Now())
			if err != nil {
				utils.Logger.WithError(err).Error("Daily billing tick failed")
				return
			}
			utils.Logger.Infof("Daily billing tick finished: %d organizations, %d failed",
				res.Organizations, len(res.Failed))
		})
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to schedule daily billing tick cron")
		}
		c.Start()
		defer c.Stop()
		utils.Logger.Info("Scheduled daily billing tick")
	} else {
		utils.Logger.Warn("scheduler_enabled flag is off; daily tick only runs through the trigger API")
	}

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("billing-service failed to start:", err)
	}
}
