package admingroup

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
)

type stubGroupCollection struct {
	result     *mongo.UpdateResult
	err        error
	lastFilter interface{}
	lastUpdate interface{}
	lastOpts   []*options.UpdateOptions
}

func (s *stubGroupCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	s.lastFilter = filter
	s.lastUpdate = update
	s.lastOpts = opts
	return s.result, s.err
}

func newTestLogger() *logrus.Entry {
	logger, _ := logtest.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestEnsureGroupLabelsAdminChat(t *testing.T) {
	coll := &stubGroupCollection{result: &mongo.UpdateResult{UpsertedCount: 1}}
	registrar := NewRegistrar(coll, -4618214079, -4618214080, newTestLogger())

	created, err := registrar.EnsureGroup(context.Background(), -4618214079, "Agent Admin Group")
	if err != nil {
		t.Fatalf("expected ensure group to succeed, got error: %v", err)
	}
	if !created {
		t.Fatalf("expected group to be reported as created")
	}

	filter, ok := coll.lastFilter.(bson.M)
	if !ok || filter["chat_id"] != int64(-4618214079) {
		t.Fatalf("expected filter on chat_id, got %v", coll.lastFilter)
	}

	setFields := coll.lastUpdate.(bson.M)["$set"].(bson.M)
	if setFields["kind"] != domain.GroupKindAdmin {
		t.Fatalf("expected admin kind label, got %v", setFields)
	}
	if setFields["title"] != "Agent Admin Group" {
		t.Fatalf("expected title in update, got %v", setFields)
	}

	if len(coll.lastOpts) != 1 || coll.lastOpts[0].Upsert == nil || !*coll.lastOpts[0].Upsert {
		t.Fatalf("expected upsert option to be set")
	}
}

func TestEnsureGroupLabelsHistoryChat(t *testing.T) {
	coll := &stubGroupCollection{result: &mongo.UpdateResult{MatchedCount: 1}}
	registrar := NewRegistrar(coll, -4618214079, -4618214080, newTestLogger())

	created, err := registrar.EnsureGroup(context.Background(), -4618214080, "History")
	if err != nil {
		t.Fatalf("expected ensure group to succeed, got error: %v", err)
	}
	if created {
		t.Fatalf("expected existing group not to be reported as created")
	}

	setFields := coll.lastUpdate.(bson.M)["$set"].(bson.M)
	if setFields["kind"] != domain.GroupKindHistory {
		t.Fatalf("expected history kind label, got %v", setFields)
	}
}

func TestEnsureGroupLeavesOtherChatsUnlabeled(t *testing.T) {
	coll := &stubGroupCollection{result: &mongo.UpdateResult{MatchedCount: 1}}
	registrar := NewRegistrar(coll, -4618214079, -4618214080, newTestLogger())

	if _, err := registrar.EnsureGroup(context.Background(), -555, ""); err != nil {
		t.Fatalf("expected ensure group to succeed, got error: %v", err)
	}

	setFields := coll.lastUpdate.(bson.M)["$set"].(bson.M)
	if _, hasKind := setFields["kind"]; hasKind {
		t.Fatalf("expected no kind label for unrelated chat, got %v", setFields)
	}
	if _, hasTitle := setFields["title"]; hasTitle {
		t.Fatalf("expected empty title to be skipped, got %v", setFields)
	}
}

func TestEnsureGroupValidatesInputs(t *testing.T) {
	registrar := NewRegistrar(&stubGroupCollection{}, -1, -2, newTestLogger())

	if _, err := registrar.EnsureGroup(nil, -555, ""); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := registrar.EnsureGroup(context.Background(), 0, ""); err == nil {
		t.Fatalf("expected error for missing chat id")
	}

	var nilRegistrar *Registrar
	if _, err := nilRegistrar.EnsureGroup(context.Background(), -555, ""); err == nil {
		t.Fatalf("expected error for uninitialized registrar")
	}
}

func TestEnsureGroupPropagatesStorageError(t *testing.T) {
	coll := &stubGroupCollection{err: errors.New("update failed")}
	registrar := NewRegistrar(coll, -1, -2, newTestLogger())

	if _, err := registrar.EnsureGroup(context.Background(), -555, ""); err == nil {
		t.Fatalf("expected storage error to propagate")
	}
}
