// Package payment содержит адаптеры платёжных провайдеров.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	// ProviderRazorpay — код провайдера в платёжной записи заказа.
	ProviderRazorpay = "razorpay"

	defaultGatewayTimeout = 10 * time.Second
)

// orderCreator — часть API Razorpay, которая нужна адаптеру.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayConfig — параметры подключения к Razorpay.
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// RazorpayGateway создаёт заказы Razorpay и проверяет подписи callback.
type RazorpayGateway struct {
	orders   orderCreator
	verifier *SignatureVerifier
	timeout  time.Duration
	logger   *log.Entry
}

// NewRazorpayGateway создаёт адаптер. Без ключей адаптер создаётся, но CreateIntent
// возвращает ErrGatewayUnavailable.
func NewRazorpayGateway(cfg RazorpayConfig, logger *log.Entry) *RazorpayGateway {
	if logger == nil {
		logger = log.WithField("component", "razorpay-gateway")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGatewayTimeout
	}

	g := &RazorpayGateway{
		verifier: NewSignatureVerifier(cfg.KeySecret),
		timeout:  cfg.Timeout,
		logger:   logger,
	}
	if strings.TrimSpace(cfg.KeyID) != "" && strings.TrimSpace(cfg.KeySecret) != "" {
		g.orders = razorpay.NewClient(cfg.KeyID, cfg.KeySecret).Order
	}
	return g
}

// Provider возвращает код провайдера.
func (g *RazorpayGateway) Provider() string {
	return ProviderRazorpay
}

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateIntent создаёт заказ у провайдера. SDK не принимает context, поэтому вызов
// ограничивается таймаутом адаптера снаружи.
func (g *RazorpayGateway) CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (domain.RemoteIntent, error) {
	if g.orders == nil {
		return domain.RemoteIntent{}, fmt.Errorf("%w: razorpay credentials are not configured", domain.ErrGatewayUnavailable)
	}
	if amountMinor <= 0 {
		return domain.RemoteIntent{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidPaymentDetails)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}

	done := make(chan createResult, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- createResult{body: body, err: err}
	}()

	var res createResult
	select {
	case <-callCtx.Done():
		g.logger.WithFields(log.Fields{"receipt": receipt, "timeout": g.timeout}).Warn("razorpay order create timed out")
		return domain.RemoteIntent{}, fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, callCtx.Err())
	case res = <-done:
	}

	if res.err != nil {
		g.logger.WithError(res.err).WithField("receipt", receipt).Warn("razorpay order create failed")
		return domain.RemoteIntent{}, fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, res.err)
	}

	return parseOrder(res.body, amountMinor, currency, receipt)
}

// VerifySignature проверяет подпись callback секретом ключа.
func (g *RazorpayGateway) VerifySignature(remoteOrderRef, remotePaymentRef, remoteSignature string) (bool, error) {
	return g.verifier.Verify(remoteOrderRef, remotePaymentRef, remoteSignature)
}

func parseOrder(body map[string]interface{}, amountMinor int64, currency, receipt string) (domain.RemoteIntent, error) {
	id, _ := body["id"].(string)
	if strings.TrimSpace(id) == "" {
		return domain.RemoteIntent{}, fmt.Errorf("%w: razorpay response has no order id", domain.ErrGatewayUnavailable)
	}

	intent := domain.RemoteIntent{
		ID:          id,
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
		Provider:    ProviderRazorpay,
	}
	if amount, err := minorFromJSON(body["amount"]); err == nil {
		intent.AmountMinor = amount
	}
	if c, ok := body["currency"].(string); ok && c != "" {
		intent.Currency = c
	}
	return intent, nil
}

func minorFromJSON(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("fractional amount %v", n)
		}
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, errors.New("amount is missing")
	}
}

var _ domain.PaymentGateway = (*RazorpayGateway)(nil)
