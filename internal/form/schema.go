// Package form defines the ordered field schemas for deposit and withdrawal
// requests and validates collected answers.
package form

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
)

// Canonical field names collected by the form.
const (
	FieldPaymentMethod  = "payment_method"
	FieldPlayerID       = "player_id"
	FieldName           = "name"
	FieldAmount         = "amount"
	FieldWalletNumber   = "wallet_number"
	FieldTransactionID  = "transaction_id"
	FieldWithdrawalCode = "withdrawal_code"
)

// Field describes a single form step: what to ask and how to validate the
// answer. Validate returns the canonical value to store.
type Field struct {
	Name     string
	Prompt   string
	Validate func(value string) (string, error)
}

// Value is one collected answer. Collection order is preserved by the session.
type Value struct {
	Name  string
	Value string
}

// Schema is the ordered list of fields for one transaction kind.
type Schema struct {
	Kind   domain.TransactionKind
	Fields []Field
}

// Len returns the number of fields in the schema.
func (s Schema) Len() int {
	return len(s.Fields)
}

// SchemaFor builds the field schema for a transaction kind. methods is the
// configured set of payment methods the agent accepts.
func SchemaFor(kind domain.TransactionKind, methods []string) Schema {
	common := []Field{
		{
			Name:     FieldPaymentMethod,
			Prompt:   "Please select a payment method:",
			Validate: methodValidator(methods),
		},
		{
			Name:     FieldPlayerID,
			Prompt:   "Enter your 1xBet player ID:",
			Validate: nonEmptyValidator(FieldPlayerID),
		},
	}

	if kind == domain.KindWithdrawal {
		common = append(common, Field{
			Name:     FieldName,
			Prompt:   "Enter the account holder's full name:",
			Validate: nonEmptyValidator(FieldName),
		})
	}

	common = append(common,
		Field{
			Name:     FieldAmount,
			Prompt:   "Enter the amount:",
			Validate: amountValidator,
		},
		Field{
			Name:     FieldWalletNumber,
			Prompt:   "Enter your wallet number:",
			Validate: nonEmptyValidator(FieldWalletNumber),
		},
	)

	if kind == domain.KindWithdrawal {
		common = append(common, Field{
			Name:     FieldWithdrawalCode,
			Prompt:   "Enter the withdrawal code:",
			Validate: nonEmptyValidator(FieldWithdrawalCode),
		})
	} else {
		common = append(common, Field{
			Name:     FieldTransactionID,
			Prompt:   "Enter the payment transaction ID:",
			Validate: nonEmptyValidator(FieldTransactionID),
		})
	}

	return Schema{Kind: kind, Fields: common}
}

// Schemas builds the schema set for all supported kinds.
func Schemas(methods []string) map[domain.TransactionKind]Schema {
	return map[domain.TransactionKind]Schema{
		domain.KindDeposit:    SchemaFor(domain.KindDeposit, methods),
		domain.KindWithdrawal: SchemaFor(domain.KindWithdrawal, methods),
	}
}

// Build materializes a TransactionRequest from a complete value set. It
// assumes each value already passed its field validator.
func Build(kind domain.TransactionKind, requesterID int64, values []Value) (domain.TransactionRequest, error) {
	byName := make(map[string]string, len(values))
	for _, v := range values {
		byName[v.Name] = v.Value
	}

	required := []string{FieldPaymentMethod, FieldPlayerID, FieldAmount, FieldWalletNumber}
	for _, name := range required {
		if byName[name] == "" {
			return domain.TransactionRequest{}, fmt.Errorf("missing field %s: %w", name, domain.ErrIncompleteSession)
		}
	}

	txnID := byName[FieldTransactionID]
	if kind == domain.KindWithdrawal {
		txnID = byName[FieldWithdrawalCode]
		if byName[FieldName] == "" {
			return domain.TransactionRequest{}, fmt.Errorf("missing field %s: %w", FieldName, domain.ErrIncompleteSession)
		}
	}
	if txnID == "" {
		return domain.TransactionRequest{}, fmt.Errorf("missing transaction id: %w", domain.ErrIncompleteSession)
	}

	amount, err := domain.ParseAmount(byName[FieldAmount])
	if err != nil {
		return domain.TransactionRequest{}, err
	}

	return domain.TransactionRequest{
		ID:            uuid.NewString(),
		PlayerID:      byName[FieldPlayerID],
		Name:          byName[FieldName],
		Amount:        amount,
		WalletNumber:  byName[FieldWalletNumber],
		PaymentMethod: byName[FieldPaymentMethod],
		TransactionID: txnID,
		Kind:          kind,
		Status:        domain.StatusPending,
		RequesterID:   requesterID,
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}, nil
}

func nonEmptyValidator(field string) func(string) (string, error) {
	return func(value string) (string, error) {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return "", domain.NewValidationError(field, "must not be empty")
		}
		return trimmed, nil
	}
}

func amountValidator(value string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return "", domain.NewValidationError(FieldAmount, "must be a decimal number")
	}
	if !d.IsPositive() {
		return "", domain.NewValidationError(FieldAmount, "must be greater than zero")
	}
	return d.String(), nil
}

func methodValidator(methods []string) func(string) (string, error) {
	return func(value string) (string, error) {
		trimmed := strings.TrimSpace(value)
		for _, m := range methods {
			if strings.EqualFold(m, trimmed) {
				return m, nil
			}
		}
		return "", domain.NewValidationError(FieldPaymentMethod,
			fmt.Sprintf("must be one of: %s", strings.Join(methods, ", ")))
	}
}
