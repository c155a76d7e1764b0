package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"mekaniku/internal/apperr"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
)

var ErrStripeAPIError = errors.New("stripe API error")

// StripeGateway charges card payments through confirmed PaymentIntents.
type StripeGateway struct {
	key    string
	client *client.API
	log    *logger.Logger
}

func NewStripeGateway(secretKey string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is not configured")
	}
	log.Info("PAYMENT", "Stripe client initialized")
	return &StripeGateway{key: secretKey, client: client.New(secretKey, nil), log: log}, nil
}

// WithAPIURL points the gateway at another Stripe-compatible API, such as
// stripe-mock.
func (g *StripeGateway) WithAPIURL(url string) *StripeGateway {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(url),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	g.client = client.New(g.key, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return g
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.PaymentMethodID == "" {
		return nil, apperr.Validation("paymentMethodId is required for card payments", nil)
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "idr"
	}
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(int64(math.Round(req.Amount * 100))),
		Currency:           stripe.String(currency),
		PaymentMethod:      stripe.String(req.PaymentMethodID),
		ConfirmationMethod: stripe.String("manual"),
		Confirm:            stripe.Bool(true),
		PaymentMethodTypes: []*string{stripe.String("card")},
		Description:        stripe.String("Workshop booking " + req.BookingID),
	}
	params.Context = ctx
	params.SetIdempotencyKey("booking-" + req.BookingID)
	params.AddMetadata("payment_id", req.PaymentID)
	params.AddMetadata("booking_id", req.BookingID)
	params.AddMetadata("method", string(req.Method))

	pi, err := g.client.PaymentIntents.New(params)
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
		result := &ChargeResult{Status: models.PaymentFailed}
		if stripeErr.PaymentIntent != nil {
			result.ExternalRef = stripeErr.PaymentIntent.ID
		}
		g.log.Warn("PAYMENT", fmt.Sprintf("Card declined for booking %s: %s (%s)", req.BookingID, stripeErr.Code, stripeErr.DeclineCode))
		return result, nil
	}
	if err != nil {
		g.log.Error("PAYMENT", fmt.Sprintf("Failed to create payment intent for booking %s: %v", req.BookingID, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	result := &ChargeResult{Status: models.PaymentFailed, ExternalRef: pi.ID}
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		result.Status = models.PaymentPaid
	} else {
		g.log.Warn("PAYMENT", fmt.Sprintf("Payment intent %s ended with status %s", pi.ID, pi.Status))
	}
	return result, nil
}
