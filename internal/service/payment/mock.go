package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ProviderMock — код провайдера для локального шлюза.
const ProviderMock = "mock"

// MockGateway — платёжный шлюз для локального запуска и тестов. Намерения выдаются
// без внешних вызовов, подписи проверяются тем же HMAC, что и у настоящего провайдера.
type MockGateway struct {
	verifier *SignatureVerifier
	secret   string

	mu          sync.Mutex
	CreateErr   error
	CreateCalls int
}

// NewMockGateway создаёт шлюз с общим секретом подписи.
func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{
		verifier: NewSignatureVerifier(secret),
		secret:   secret,
	}
}

// Provider возвращает код провайдера.
func (m *MockGateway) Provider() string {
	return ProviderMock
}

// CreateIntent возвращает намерение с идентификатором order_mock_*.
func (m *MockGateway) CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (domain.RemoteIntent, error) {
	m.mu.Lock()
	m.CreateCalls++
	failure := m.CreateErr
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.RemoteIntent{}, fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, err)
	}
	if failure != nil {
		return domain.RemoteIntent{}, failure
	}

	return domain.RemoteIntent{
		ID:          "order_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
		Provider:    ProviderMock,
	}, nil
}

// VerifySignature проверяет подпись общим секретом.
func (m *MockGateway) VerifySignature(remoteOrderRef, remotePaymentRef, remoteSignature string) (bool, error) {
	return m.verifier.Verify(remoteOrderRef, remotePaymentRef, remoteSignature)
}

// Sign подписывает пару ссылок так, как это сделал бы провайдер после оплаты.
func (m *MockGateway) Sign(remoteOrderRef, remotePaymentRef string) string {
	return ComputeSignature(m.secret, remoteOrderRef, remotePaymentRef)
}

// Calls возвращает число вызовов CreateIntent.
func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CreateCalls
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
