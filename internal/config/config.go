package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

type Config struct {
	AppName string
	AppPort string
	AppUrl  string
	Env     string

	// Database
	DBUrl string

	// Twilio / SendGrid for tenant and operator notifications
	TwilioAccountSID string
	TwilioAuthToken  string
	SendGridAPIKey   string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Shared secret for scheduler trigger tokens
	TriggerJWTSecret []byte

	// LaunchDarkly flags
	LDFlag_TwilioFromPhone      string
	LDFlag_SendgridFromEmail    string
	LDFlag_SendgridSandboxMode  bool
	LDFlag_SeedDbWithTestData   bool
	LDFlag_CORSHighSecurity     bool
	LDFlag_SchedulerEnabled     bool
	LDFlag_RequirePrimaryTenant bool
}

const (
	LDConnectionTimeout = 5 * time.Second
	defaultAppPort      = "8080"
	defaultEnv          = "dev"
)

// build-time overrides
var (
	AppName             = "billing-service"
	LDServerContextKey  = "billing-service"
	LDServerContextKind = "service"
)

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		utils.Logger.Debug("No .env file loaded; using process environment only")
	}

	utils.Logger.Info("Loading config for app: ", AppName)

	env := getenvDefault("ENV", defaultEnv)
	appPort := getenvDefault("APP_PORT", defaultAppPort)
	appUrl := getenvDefault("APP_URL_FROM_ANYWHERE", "http://localhost:"+appPort)

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}
	triggerSecret := os.Getenv("TRIGGER_JWT_SECRET")
	if triggerSecret == "" {
		utils.Logger.Fatal("TRIGGER_JWT_SECRET env var is missing")
	}

	twilioSID := os.Getenv("TWILIO_ACCOUNT_SID")
	twilioToken := os.Getenv("TWILIO_AUTH_TOKEN")
	if twilioSID == "" || twilioToken == "" {
		utils.Logger.Warn("Twilio credentials missing; SMS notifications disabled")
	}
	sgAPIKey := os.Getenv("SENDGRID_API_KEY")
	if sgAPIKey == "" {
		utils.Logger.Warn("SENDGRID_API_KEY missing; email notifications disabled")
	}
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	stripeWebhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if stripeKey == "" || stripeWebhookSecret == "" {
		utils.Logger.Warn("Stripe credentials missing; processor webhooks will be rejected")
	}

	ldSDKKey := os.Getenv("LD_SDK_KEY")
	ldConfig := ld.Config{}
	if ldSDKKey == "" {
		utils.Logger.Warn("LD_SDK_KEY missing; LaunchDarkly running offline with flag defaults")
		ldConfig.Offline = true
	}
	ldClient, err := ld.MakeCustomClient(ldSDKKey, ldConfig, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	if !ldConfig.Offline && !ldClient.Initialized() {
		ldClient.Close()
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}
	defer ldClient.Close()

	ctx := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey)

	boolFlag := func(key string, def bool) bool {
		v, err := ldClient.BoolVariation(key, ctx, def)
		if err != nil {
			utils.Logger.WithError(err).Fatalf("Error retrieving %s flag", key)
		}
		utils.Logger.Debugf("%s flag: %t", key, v)
		return v
	}

	twilioFromFlag, err := ldClient.StringVariation("twilio_from_phone", ctx, "")
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving twilio_from_phone flag")
	}
	if twilioFromFlag == "" {
		utils.Logger.Warn("twilio_from_phone flag is empty, defaulting to +10005550006")
		twilioFromFlag = "+10005550006"
	}

	sgFromFlag, err := ldClient.StringVariation("sendgrid_from_email", ctx, "")
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_from_email flag")
	}
	if sgFromFlag == "" {
		utils.Logger.Warn("sendgrid_from_email flag is empty, defaulting to billing@rentalgates.dev")
		sgFromFlag = "billing@rentalgates.dev"
	}

	return &Config{
		AppName:                     AppName,
		AppPort:                     appPort,
		AppUrl:                      appUrl,
		Env:                         env,
		DBUrl:                       dbURL,
		TwilioAccountSID:            twilioSID,
		TwilioAuthToken:             twilioToken,
		SendGridAPIKey:              sgAPIKey,
		StripeSecretKey:             stripeKey,
		StripeWebhookSecret:         stripeWebhookSecret,
		TriggerJWTSecret:            []byte(triggerSecret),
		LDFlag_TwilioFromPhone:      twilioFromFlag,
		LDFlag_SendgridFromEmail:    sgFromFlag,
		LDFlag_SendgridSandboxMode:  boolFlag("sendgrid_sandbox_mode", env != "prod"),
		LDFlag_SeedDbWithTestData:   boolFlag("seed_db_with_test_data", false),
		LDFlag_CORSHighSecurity:     boolFlag("cors_high_security", env == "prod"),
		LDFlag_SchedulerEnabled:     boolFlag("scheduler_enabled", true),
		LDFlag_RequirePrimaryTenant: boolFlag("require_primary_tenant", false),
	}
}

func (c *Config) Close() {}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
