package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ComputeSignature возвращает hex(HMAC-SHA256(secret, orderRef + "|" + paymentRef)),
// в том виде, в каком провайдер подписывает callback.
func ComputeSignature(secret, remoteOrderRef, remotePaymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(remoteOrderRef + "|" + remotePaymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureVerifier проверяет подписи callback общим секретом.
type SignatureVerifier struct {
	secret []byte
}

// NewSignatureVerifier создаёт проверяющего с секретом сервера.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Verify сравнивает подпись за постоянное время и возвращает false при несовпадении.
// Ошибка означает пустые или некорректные поля либо ненастроенный секрет.
func (v *SignatureVerifier) Verify(remoteOrderRef, remotePaymentRef, remoteSignature string) (bool, error) {
	callback := domain.PaymentCallback{
		RemoteOrderRef:   remoteOrderRef,
		RemotePaymentRef: remotePaymentRef,
		RemoteSignature:  remoteSignature,
	}
	if err := callback.Validate(); err != nil {
		return false, err
	}
	if v == nil || len(v.secret) == 0 {
		return false, fmt.Errorf("%w: signing secret is not configured", domain.ErrGatewayUnavailable)
	}

	// Сравниваются строки целиком: регистр и пробелы тоже часть подписи.
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(remoteOrderRef + "|" + remotePaymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(remoteSignature)), nil
}
