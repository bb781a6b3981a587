package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

// newPaymentGateway выбирает Razorpay при наличии ключей, иначе встроенный шлюз.
func newPaymentGateway(cfg Config, logger *log.Entry) domain.PaymentGateway {
	if cfg.razorpayConfigured() {
		logger.Info("using razorpay payment gateway")
		return payment.NewRazorpayGateway(payment.RazorpayConfig{
			KeyID:     cfg.RazorpayKeyID,
			KeySecret: cfg.RazorpayKeySecret,
			Timeout:   cfg.RazorpayTimeout,
		}, logger.WithField("component", "razorpay-gateway"))
	}

	logger.Warn("razorpay credentials not set, using mock payment gateway")
	return payment.NewMockGateway(cfg.PaymentSigningSecret)
}
