package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

type stubClassifier map[string]domain.Classification

func (s stubClassifier) Classify(code string) domain.Classification {
	if c, ok := s[code]; ok {
		return c
	}
	return domain.Classification{Category: domain.ResultOther}
}

func TestTranslator_ToMessage(t *testing.T) {
	tr := NewTranslator(stubClassifier{
		"ack":        {Category: domain.ResultACK},
		"nok":        {Category: domain.ResultNOK},
		"review":     {Category: domain.ResultACK, SuccessPendingReview: true},
		"review-nok": {Category: domain.ResultNOK, SuccessPendingReview: true},
	})

	tests := []struct {
		code string
		want string
	}{
		{code: "ack", want: MessageProcessed},
		{code: "nok", want: MessageFailed},
		{code: "review", want: MessagePending},
		{code: "review-nok", want: MessagePending},
		{code: "other", want: MessageCanceled},
		{code: "", want: MessageCanceled},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tr.ToMessage(tt.code), "ToMessage(%q)", tt.code)
	}
}
