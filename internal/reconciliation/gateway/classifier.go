// Package gateway classifies Payreto (Open Payment Platform) result codes.
package gateway

import (
	"regexp"
	"strings"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

var (
	resultCodeFormat = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}$`)

	successProcessed = regexp.MustCompile(`^(000\.000\.|000\.100\.1|000\.[36]|000\.400\.1[12]0)`)
	successReview    = regexp.MustCompile(`^(000\.400\.0[^3]|000\.400\.100)`)
	pending          = regexp.MustCompile(`^(000\.200|800\.400\.5|100\.400\.500)`)
)

// Classifier classifies result codes with the gateway's published code groups
type Classifier struct{}

// NewClassifier creates a result code classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the coarse category and whether the code is a success that awaits manual review.
// Pending and malformed codes fall into ResultOther.
func (c *Classifier) Classify(resultCode string) domain.Classification {
	code := strings.TrimSpace(resultCode)

	switch {
	case successReview.MatchString(code):
		return domain.Classification{Category: domain.ResultACK, SuccessPendingReview: true}
	case successProcessed.MatchString(code):
		return domain.Classification{Category: domain.ResultACK}
	case pending.MatchString(code):
		return domain.Classification{Category: domain.ResultOther}
	case resultCodeFormat.MatchString(code):
		return domain.Classification{Category: domain.ResultNOK}
	}
	return domain.Classification{Category: domain.ResultOther}
}
