package telegram

import (
	"errors"
	"testing"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
)

func TestParseActionRoundTrips(t *testing.T) {
	menu, err := ParseAction(EncodeMenu(domain.KindDeposit))
	if err != nil {
		t.Fatalf("expected menu action to parse, got error: %v", err)
	}
	if menu.Type != ActionMenu || menu.Kind != domain.KindDeposit {
		t.Fatalf("unexpected menu action: %+v", menu)
	}

	method, err := ParseAction(EncodeMethod("bKash"))
	if err != nil {
		t.Fatalf("expected method action to parse, got error: %v", err)
	}
	if method.Type != ActionMethod || method.Method != "bKash" {
		t.Fatalf("unexpected method action: %+v", method)
	}

	decide, err := ParseAction(EncodeDecision(domain.DecisionApprove, "req-123"))
	if err != nil {
		t.Fatalf("expected decide action to parse, got error: %v", err)
	}
	if decide.Type != ActionDecide || decide.Decision != domain.DecisionApprove || decide.RequestID != "req-123" {
		t.Fatalf("unexpected decide action: %+v", decide)
	}
}

func TestParseActionBareActions(t *testing.T) {
	submit, err := ParseAction("submit")
	if err != nil || submit.Type != ActionSubmit {
		t.Fatalf("expected submit action, got %+v (err=%v)", submit, err)
	}

	cancel, err := ParseAction("cancel")
	if err != nil || cancel.Type != ActionCancel {
		t.Fatalf("expected cancel action, got %+v (err=%v)", cancel, err)
	}
}

func TestParseActionRejectsMalformedData(t *testing.T) {
	cases := []string{
		"",
		"bogus",
		"menu:",
		"menu:loan",
		"method:",
		"decide:approve",
		"decide:approve:",
		"decide:maybe:req-1",
	}

	for _, data := range cases {
		if _, err := ParseAction(data); !errors.Is(err, ErrUnknownAction) {
			t.Fatalf("expected ErrUnknownAction for %q, got %v", data, err)
		}
	}
}

func TestEncodeDecisionKeepsIDIntact(t *testing.T) {
	id := "6f1c2a74-9c1e-4f6a-8a9a-2b2d7c3f1e00"

	action, err := ParseAction(EncodeDecision(domain.DecisionReject, id))
	if err != nil {
		t.Fatalf("expected decision to parse, got error: %v", err)
	}
	if action.RequestID != id {
		t.Fatalf("expected request id %s, got %s", id, action.RequestID)
	}
	if action.Decision != domain.DecisionReject {
		t.Fatalf("expected reject decision, got %s", action.Decision)
	}
}
