package router

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-billing/internal/config"
	"github.com/ignatzorin/freelance-billing/internal/http/handlers"
)

// Пути вебхуков и cron-запусков прописаны в настройках шлюзов и
// планировщика снаружи, менять их нельзя.
func TestSetupRouter_IntakePaths(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	cfg := &config.Config{
		Env:               "production",
		AllowedOrigins:    []string{"http://localhost:3000"},
		RateLimitLimit:    60,
		RateLimitPeriod:   time.Minute,
		InternalCronToken: "internal-test-token",
	}

	r := SetupRouter(cfg,
		handlers.NewContractHandler(nil),
		handlers.NewMilestoneHandler(nil),
		handlers.NewTimesheetHandler(nil),
		handlers.NewBillingHandler(nil),
		handlers.NewPayoutHandler(nil, nil),
		handlers.NewDisputeHandler(nil),
		handlers.NewNotificationHandler(nil),
		handlers.NewWebhookHandler(nil, nil, nil, log),
		handlers.NewCronHandler(nil, nil),
		handlers.NewWSHandler(nil, nil),
		handlers.NewHealthHandler(nil),
		nil,
	)

	mounted := make(map[string]bool)
	for _, route := range r.Routes() {
		mounted[route.Method+" "+route.Path] = true
	}

	assert.True(t, mounted["POST /webhooks/stripe"])
	assert.True(t, mounted["POST /webhooks/paypal"])
	assert.True(t, mounted["POST /cron/charge-weekly"])
	assert.True(t, mounted["POST /cron/payout-weekly"])
	assert.True(t, mounted["GET /health"])
	assert.True(t, mounted["POST /api/contracts"])
	assert.True(t, mounted["GET /api/payouts/balance"])
}
