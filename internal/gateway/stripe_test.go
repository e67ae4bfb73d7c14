package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testStripeGateway(secret string) *StripeGateway {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewStripeGateway("https://api.stripe.example", "sk_test", secret, time.Second, 200*time.Millisecond, logrus.NewEntry(l))
}

func signStripe(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeVerifyWebhook_ValidSignature(t *testing.T) {
	g := testStripeGateway("whsec_test")
	payload := []byte(`{"type":"payment_intent.succeeded"}`)

	header := signStripe("whsec_test", time.Now().Unix(), payload)
	assert.NoError(t, g.VerifyWebhook(payload, header))
}

func TestStripeVerifyWebhook_WrongSecret(t *testing.T) {
	g := testStripeGateway("whsec_test")
	payload := []byte(`{}`)

	header := signStripe("whsec_other", time.Now().Unix(), payload)
	assert.ErrorIs(t, g.VerifyWebhook(payload, header), ErrBadSignature)
}

func TestStripeVerifyWebhook_TamperedPayload(t *testing.T) {
	g := testStripeGateway("whsec_test")

	header := signStripe("whsec_test", time.Now().Unix(), []byte(`{"amount":100}`))
	assert.ErrorIs(t, g.VerifyWebhook([]byte(`{"amount":999}`), header), ErrBadSignature)
}

func TestStripeVerifyWebhook_StaleTimestamp(t *testing.T) {
	g := testStripeGateway("whsec_test")
	payload := []byte(`{}`)

	stale := time.Now().Add(-10 * time.Minute).Unix()
	header := signStripe("whsec_test", stale, payload)
	assert.ErrorIs(t, g.VerifyWebhook(payload, header), ErrBadSignature)
}

func TestStripeVerifyWebhook_MalformedHeader(t *testing.T) {
	g := testStripeGateway("whsec_test")

	assert.ErrorIs(t, g.VerifyWebhook([]byte(`{}`), ""), ErrBadSignature)
	assert.ErrorIs(t, g.VerifyWebhook([]byte(`{}`), "v1=deadbeef"), ErrBadSignature)
}

func TestStripeParseWebhook_PaymentIntentSucceeded(t *testing.T) {
	g := testStripeGateway("whsec_test")

	event, err := g.ParseWebhook([]byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`))
	assert.NoError(t, err)
	assert.Equal(t, EventChargeSucceeded, event.Kind)
	assert.Equal(t, "pi_1", event.GatewayReference)
}

func TestStripeParseWebhook_PaymentFailedCarriesReason(t *testing.T) {
	g := testStripeGateway("whsec_test")

	payload := []byte(`{"type":"payment_intent.payment_failed","data":{"object":{"id":"pi_2","last_payment_error":{"message":"card declined"}}}}`)
	event, err := g.ParseWebhook(payload)
	assert.NoError(t, err)
	assert.Equal(t, EventChargeFailed, event.Kind)
	assert.Equal(t, "card declined", event.Reason)
}

func TestStripeParseWebhook_RefundReferencesPaymentIntent(t *testing.T) {
	g := testStripeGateway("whsec_test")

	payload := []byte(`{"type":"charge.refunded","data":{"object":{"id":"ch_1","payment_intent":"pi_3","amount_refunded":4250}}}`)
	event, err := g.ParseWebhook(payload)
	assert.NoError(t, err)
	assert.Equal(t, EventChargeRefunded, event.Kind)
	assert.Equal(t, "pi_3", event.GatewayReference)
	assert.Equal(t, "42.50", event.Amount.StringFixed(2))
}

func TestStripeParseWebhook_TransferCreatedCompletesPayout(t *testing.T) {
	g := testStripeGateway("whsec_test")

	event, err := g.ParseWebhook([]byte(`{"type":"transfer.created","data":{"object":{"id":"tr_1"}}}`))
	assert.NoError(t, err)
	assert.Equal(t, EventPayoutSucceeded, event.Kind)
	assert.Equal(t, "tr_1", event.GatewayReference)
}

func TestStripeParseWebhook_TransferReversed(t *testing.T) {
	g := testStripeGateway("whsec_test")

	event, err := g.ParseWebhook([]byte(`{"type":"transfer.reversed","data":{"object":{"id":"tr_2"}}}`))
	assert.NoError(t, err)
	assert.Equal(t, EventPayoutRefunded, event.Kind)
	assert.Equal(t, "tr_2", event.GatewayReference)
	assert.Equal(t, "transfer reversed", event.Reason)
}

func TestStripeGateway_ConnectTimeoutConfigured(t *testing.T) {
	g := testStripeGateway("whsec_test")

	transport, ok := g.client.GetClient().Transport.(*http.Transport)
	assert.True(t, ok)
	assert.NotNil(t, transport.DialContext)
}

func TestStripeParseWebhook_UnknownTypeIgnored(t *testing.T) {
	g := testStripeGateway("whsec_test")

	event, err := g.ParseWebhook([]byte(`{"type":"customer.updated","data":{"object":{"id":"cus_1"}}}`))
	assert.NoError(t, err)
	assert.Nil(t, event)
}
