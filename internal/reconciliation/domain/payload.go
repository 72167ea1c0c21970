package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// GatewayResult carries the gateway's result code
type GatewayResult struct {
	Code string `json:"code"`
}

// GatewayStatusPayload is a status notification as posted by the gateway
type GatewayStatusPayload struct {
	PaymentKey        string        `json:"paymentKey"`
	Status            string        `json:"status" validate:"required"`
	Currency          string        `json:"currency" validate:"required,iso4217"`
	Amount            string        `json:"amount" validate:"required"`
	TransactionID     string        `json:"transaction_id"`
	OrderID           uint          `json:"orderId"`
	Result            GatewayResult `json:"result"`
	IPCountry         string        `json:"IP_country"`
	InstrumentCountry string        `json:"payment_instrument_country"`
	PayerEmail        string        `json:"pay_from_email"`
	PaymentType       string        `json:"payment_type"`
}

// ResultCode returns the gateway result code
func (p GatewayStatusPayload) ResultCode() string {
	return p.Result.Code
}

// Validate checks the mandatory fields of the payload
func (p GatewayStatusPayload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return toValidationError(err)
	}
	if _, err := decimal.NewFromString(p.Amount); err != nil {
		return &ValidationError{Field: "amount", Reason: "must be a decimal number"}
	}
	return nil
}

// RefundSource gives uniform access to a refund notification regardless of its shape
type RefundSource interface {
	RefundID() string
	ResultCode() string
	Currency() string
	Amount() string
}

// ValidateRefund checks the mandatory fields of a refund notification
func ValidateRefund(src RefundSource) error {
	if src == nil || strings.TrimSpace(src.RefundID()) == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	return nil
}

// RefundStatusPayload is the structured refund result returned by the gateway
type RefundStatusPayload struct {
	ID           string        `json:"id"`
	CurrencyCode string        `json:"currency"`
	AmountValue  string        `json:"amount"`
	Result       GatewayResult `json:"result"`
}

func (p RefundStatusPayload) RefundID() string   { return p.ID }
func (p RefundStatusPayload) ResultCode() string { return p.Result.Code }
func (p RefundStatusPayload) Currency() string   { return p.CurrencyCode }
func (p RefundStatusPayload) Amount() string     { return p.AmountValue }

// RefundBag adapts a decoded generic refund document with dotted key-path access
type RefundBag map[string]any

// Lookup resolves a dotted path such as "result.code" to its string form
func (b RefundBag) Lookup(path string) (string, bool) {
	var cur any = map[string]any(b)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[key]; !ok || cur == nil {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

func (b RefundBag) get(path string) string {
	v, _ := b.Lookup(path)
	return v
}

func (b RefundBag) RefundID() string   { return b.get("id") }
func (b RefundBag) ResultCode() string { return b.get("result.code") }
func (b RefundBag) Currency() string   { return b.get("currency") }
func (b RefundBag) Amount() string     { return b.get("amount") }

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "is required"
		if fe.Tag() != "required" {
			reason = fmt.Sprintf("failed %s check", fe.Tag())
		}
		return &ValidationError{Field: fe.Field(), Reason: reason}
	}
	return &ValidationError{Field: "payload", Reason: err.Error()}
}
