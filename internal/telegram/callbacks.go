package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
)

// ActionType names the callback actions the bot understands.
type ActionType string

const (
	ActionMenu   ActionType = "menu"
	ActionMethod ActionType = "method"
	ActionSubmit ActionType = "submit"
	ActionCancel ActionType = "cancel"
	ActionDecide ActionType = "decide"
)

// ErrUnknownAction indicates callback data that no handler understands. Stale
// buttons from older bot versions land here and are ignored.
var ErrUnknownAction = errors.New("unknown callback action")

// Action is a decoded callback payload. Only the fields relevant to the
// action type are populated.
type Action struct {
	Type      ActionType
	Kind      domain.TransactionKind // ActionMenu
	Method    string                 // ActionMethod
	Decision  domain.Decision        // ActionDecide
	RequestID string                 // ActionDecide
}

// EncodeMenu renders the callback data for a main menu flow button.
func EncodeMenu(kind domain.TransactionKind) string {
	return fmt.Sprintf("%s:%s", ActionMenu, kind)
}

// EncodeMethod renders the callback data for a payment method button.
func EncodeMethod(method string) string {
	return fmt.Sprintf("%s:%s", ActionMethod, method)
}

// EncodeDecision renders the callback data for an approve/reject button on an
// admin approval card.
func EncodeDecision(decision domain.Decision, requestID string) string {
	return fmt.Sprintf("%s:%s:%s", ActionDecide, decision, requestID)
}

// ParseAction decodes callback data into a typed Action. The payload is
// decoded once at the update boundary; handlers never touch raw strings.
func ParseAction(data string) (Action, error) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 3)

	switch ActionType(parts[0]) {
	case ActionSubmit:
		return Action{Type: ActionSubmit}, nil

	case ActionCancel:
		return Action{Type: ActionCancel}, nil

	case ActionMenu:
		if len(parts) != 2 {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		kind, err := domain.ParseKind(parts[1])
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		return Action{Type: ActionMenu, Kind: kind}, nil

	case ActionMethod:
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		return Action{Type: ActionMethod, Method: parts[1]}, nil

	case ActionDecide:
		if len(parts) != 3 || strings.TrimSpace(parts[2]) == "" {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		decision, err := domain.ParseDecision(parts[1])
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		return Action{Type: ActionDecide, Decision: decision, RequestID: parts[2]}, nil

	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
}
