package services

import "fmt"

// Values of the "type" metadata key set when a payment intent is opened.
const (
	PaymentTypeWalletDeposit = "wallet_deposit"
	PaymentTypeEscrow        = "escrow_payment"
)

// PaymentMetadata is the parsed form of a payment intent's metadata. It is
// one of WalletDepositMetadata, EscrowPaymentMetadata or UnknownMetadata.
type PaymentMetadata interface {
	paymentType() string
}

type WalletDepositMetadata struct {
	UserID string
}

type EscrowPaymentMetadata struct {
	PropertyID string
	TenantID   string
	LandlordID string
}

// UnknownMetadata covers intents this service did not open, or opened
// with metadata it can no longer interpret.
type UnknownMetadata struct {
	Type string
}

func (WalletDepositMetadata) paymentType() string { return PaymentTypeWalletDeposit }
func (EscrowPaymentMetadata) paymentType() string { return PaymentTypeEscrow }
func (m UnknownMetadata) paymentType() string     { return m.Type }

// ParsePaymentMetadata never returns nil. The error is set when a known type
// is missing required keys; the result is then UnknownMetadata.
func ParsePaymentMetadata(md map[string]string) (PaymentMetadata, error) {
	kind := md["type"]
	switch kind {
	case PaymentTypeWalletDeposit:
		if md["userId"] == "" {
			return UnknownMetadata{Type: kind}, fmt.Errorf("%s metadata missing userId", kind)
		}
		return WalletDepositMetadata{UserID: md["userId"]}, nil
	case PaymentTypeEscrow:
		m := EscrowPaymentMetadata{
			PropertyID: md["propertyId"],
			TenantID:   md["tenantId"],
			LandlordID: md["landlordId"],
		}
		if m.PropertyID == "" || m.TenantID == "" || m.LandlordID == "" {
			return UnknownMetadata{Type: kind}, fmt.Errorf("%s metadata missing propertyId, tenantId or landlordId", kind)
		}
		return m, nil
	}
	return UnknownMetadata{Type: kind}, nil
}
