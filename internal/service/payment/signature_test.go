package payment

import (
	"errors"
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestComputeSignature_KnownVector(t *testing.T) {
	// echo -n "order_1|pay_1" | openssl dgst -sha256 -hmac secret
	const want = "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb"
	got := ComputeSignature("secret", "order_1", "pay_1")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got == ComputeSignature("secret", "order_1", "pay_2") {
		t.Fatal("payment ref must be part of the signed message")
	}
	if got == ComputeSignature("other", "order_1", "pay_1") {
		t.Fatal("secret must change the signature")
	}
}

func TestSignatureVerifier_Verify(t *testing.T) {
	verifier := NewSignatureVerifier("secret")
	valid := ComputeSignature("secret", "order_1", "pay_1")

	cases := []struct {
		name       string
		orderRef   string
		paymentRef string
		signature  string
		wantOK     bool
		wantErr    error
	}{
		{name: "valid", orderRef: "order_1", paymentRef: "pay_1", signature: valid, wantOK: true},
		{name: "upper case hex", orderRef: "order_1", paymentRef: "pay_1", signature: strings.ToUpper(valid)},
		{name: "leading space", orderRef: "order_1", paymentRef: "pay_1", signature: " " + valid},
		{name: "trailing space", orderRef: "order_1", paymentRef: "pay_1", signature: valid + " "},
		{name: "other payment", orderRef: "order_1", paymentRef: "pay_2", signature: valid},
		{name: "swapped refs", orderRef: "pay_1", paymentRef: "order_1", signature: valid},
		{name: "wrong secret", orderRef: "order_1", paymentRef: "pay_1", signature: ComputeSignature("nope", "order_1", "pay_1")},
		{name: "missing order ref", paymentRef: "pay_1", signature: valid, wantErr: domain.ErrInvalidPaymentDetails},
		{name: "missing payment ref", orderRef: "order_1", signature: valid, wantErr: domain.ErrInvalidPaymentDetails},
		{name: "missing signature", orderRef: "order_1", paymentRef: "pay_1", wantErr: domain.ErrInvalidPaymentDetails},
		{name: "not hex", orderRef: "order_1", paymentRef: "pay_1", signature: "zz-not-hex"},
		{name: "truncated", orderRef: "order_1", paymentRef: "pay_1", signature: valid[:32]},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := verifier.Verify(tc.orderRef, tc.paymentRef, tc.signature)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
		})
	}
}

func TestSignatureVerifier_SingleCharacterChange(t *testing.T) {
	verifier := NewSignatureVerifier("secret")
	valid := ComputeSignature("secret", "order_1", "pay_1")

	for i := range len(valid) {
		for _, replacement := range []byte{'0', 'f', 'F', 'z', ' '} {
			if valid[i] == replacement {
				continue
			}
			forged := valid[:i] + string(replacement) + valid[i+1:]
			ok, err := verifier.Verify("order_1", "pay_1", forged)
			if err != nil {
				t.Fatalf("position %d replaced by %q: unexpected error %v", i, replacement, err)
			}
			if ok {
				t.Fatalf("position %d replaced by %q must not verify", i, replacement)
			}
		}
	}
}

func TestSignatureVerifier_NoSecret(t *testing.T) {
	verifier := NewSignatureVerifier("")
	_, err := verifier.Verify("order_1", "pay_1", ComputeSignature("", "order_1", "pay_1"))
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable, got %v", err)
	}
}
