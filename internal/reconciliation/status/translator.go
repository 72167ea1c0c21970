package status

import "github.com/tair/payreto-reconciler/internal/reconciliation/domain"

// Outcome messages
const (
	MessagePending   = "Pending"
	MessageProcessed = "Processed"
	MessageFailed    = "Failed"
	MessageCanceled  = "Canceled"
)

// Translator turns gateway result codes into outcome messages
type Translator struct {
	classifier domain.ResultClassifier
}

// NewTranslator creates a translator backed by the given classifier
func NewTranslator(classifier domain.ResultClassifier) *Translator {
	return &Translator{classifier: classifier}
}

// ToMessage returns Pending, Processed, Failed or Canceled for a result code
func (t *Translator) ToMessage(resultCode string) string {
	c := t.classifier.Classify(resultCode)
	if c.SuccessPendingReview {
		return MessagePending
	}

	switch c.Category {
	case domain.ResultACK:
		return MessageProcessed
	case domain.ResultNOK:
		return MessageFailed
	default:
		return MessageCanceled
	}
}
