// Package status translates gateway vocabulary into ledger states and
// human-readable outcome messages.
package status

import "github.com/tair/payreto-reconciler/internal/reconciliation/domain"

// Gateway status codes
const (
	CodeAwaitingApproval = "1"
	CodeApproved         = "2"
	CodeRefused          = "-2"
	CodeCaptured         = "3"
	CodeCanceled         = "5"
)

// MapState returns the ledger state for a gateway status code.
// An approved refund means the money went back, so code "2" maps to Refunded
// when isRefund is set. Unknown codes are treated as awaiting approval.
func MapState(code string, isRefund bool) domain.LedgerState {
	switch code {
	case CodeAwaitingApproval:
		return domain.StateAwaitingApproval
	case CodeApproved:
		if isRefund {
			return domain.StateRefunded
		}
		return domain.StateApproved
	case CodeRefused:
		return domain.StateRefused
	case CodeCaptured:
		return domain.StateCaptured
	case CodeCanceled:
		return domain.StateCanceled
	}
	return domain.StateAwaitingApproval
}

// CodeForPaymentType converts a gateway payment-type short code into a status code:
// pre-authorizations are approved, debits/captures/receipts are captured and
// anything else is still in review.
func CodeForPaymentType(paymentType string) string {
	switch paymentType {
	case "PA":
		return CodeApproved
	case "CP", "RC", "DB":
		return CodeCaptured
	}
	return CodeAwaitingApproval
}

// MapStatusHint returns the ledger state implied by a payment-type short code
func MapStatusHint(paymentType string) domain.LedgerState {
	return MapState(CodeForPaymentType(paymentType), false)
}
