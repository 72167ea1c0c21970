// Package booking builds the human-readable audit texts attached to ledger records.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/method"
)

// DefaultMethodPrefix turns a payment type into a registered payment key
const DefaultMethodPrefix = "PAYRETO_"

// Translator turns a gateway result code into an outcome message
type Translator interface {
	ToMessage(resultCode string) string
}

// Builder assembles booking texts from the fields present on a payload
type Builder struct {
	translator Translator
	countries  domain.CountryLookup
	prefix     string
}

// NewBuilder creates a booking text builder
func NewBuilder(translator Translator, countries domain.CountryLookup, methodPrefix string) *Builder {
	if methodPrefix == "" {
		methodPrefix = DefaultMethodPrefix
	}
	return &Builder{translator: translator, countries: countries, prefix: methodPrefix}
}

// MethodKey returns the payment key a payment type is registered under.
// NGP (giropay via the online bank transfer product) is booked as OBT.
func (b *Builder) MethodKey(paymentType string) string {
	if paymentType == "NGP" {
		paymentType = "OBT"
	}
	return b.prefix + paymentType
}

// PaymentText builds the booking text for a status notification.
// Absent fields are skipped; an unknown country drops its line.
func (b *Builder) PaymentText(ctx context.Context, p domain.GatewayStatusPayload, methods method.Lookup) (string, error) {
	var lines []string

	if p.TransactionID != "" {
		lines = append(lines, "Transaction ID : "+p.TransactionID)
	}
	if p.PaymentType != "" && methods != nil {
		if m, ok := methods.ByKey(b.MethodKey(p.PaymentType)); ok {
			lines = append(lines, "Used payment method : "+m.Name)
		}
	}
	if p.Status != "" {
		lines = append(lines, "Payment status : "+b.translator.ToMessage(p.ResultCode()))
	}
	if p.IPCountry != "" {
		name, err := b.countryName(ctx, p.IPCountry, domain.ISO2)
		if err != nil {
			return "", err
		}
		if name != "" {
			lines = append(lines, "Order originated from : "+name)
		}
	}
	if p.InstrumentCountry != "" {
		name, err := b.countryName(ctx, p.InstrumentCountry, domain.ISO3)
		if err != nil {
			return "", err
		}
		if name != "" {
			lines = append(lines, "Country (of the card-issuer) : "+name)
		}
	}
	if p.PayerEmail != "" {
		lines = append(lines, "Payreto account email : "+p.PayerEmail)
	}

	return strings.Join(lines, "\n"), nil
}

// RefundText builds the booking text for a refund notification
func (b *Builder) RefundText(refund domain.RefundSource) string {
	var lines []string

	if id := refund.RefundID(); id != "" {
		lines = append(lines, "Transaction ID : "+id)
	}
	if code := refund.ResultCode(); code != "" {
		lines = append(lines, "Refund status : "+b.translator.ToMessage(code))
	}

	return strings.Join(lines, "\n")
}

func (b *Builder) countryName(ctx context.Context, code string, kind domain.ISOCodeKind) (string, error) {
	country, err := b.countries.FindCountryByISOCode(ctx, code, kind)
	if err != nil {
		if errors.Is(err, domain.ErrCountryNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up country %s: %w", code, err)
	}
	return country.Name, nil
}
