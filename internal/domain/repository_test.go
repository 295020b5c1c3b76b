package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestUserRepositoryCreateAndGet(t *testing.T) {
	coll := newFakeTransactionCollection(t)
	repo := NewUserRepository(coll)

	ctx := context.Background()
	input := User{
		UserID: 12345,
		Role:   RoleAdmin,
	}

	created, err := repo.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.Role != RoleAdmin {
		t.Fatalf("expected role %s, got %s", RoleAdmin, created.Role)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set, got created_at=%v updated_at=%v", created.CreatedAt, created.UpdatedAt)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected created_at and updated_at to match on insert, got %v and %v", created.CreatedAt, created.UpdatedAt)
	}

	doc := coll.docFor(t, "user_id", input.UserID)
	assertStringField(t, doc, "role", RoleAdmin)
	assertTimeFieldSet(t, doc, "created_at")
	assertTimeFieldSet(t, doc, "updated_at")

	found, err := repo.GetByID(ctx, input.UserID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if found.UserID != input.UserID {
		t.Fatalf("expected user_id %d, got %d", input.UserID, found.UserID)
	}
	if found.Role != RoleAdmin {
		t.Fatalf("expected role %s, got %s", RoleAdmin, found.Role)
	}
}

func TestUserRepositoryCanDecide(t *testing.T) {
	coll := newFakeTransactionCollection(t)
	repo := NewUserRepository(coll)
	ctx := context.Background()

	tests := []struct {
		userID   int64
		role     string
		expected bool
	}{
		{101, RoleOwner, true},
		{102, RoleAdmin, true},
		{103, RoleViewer, false},
		{104, RoleUser, false},
	}

	for _, tt := range tests {
		if _, err := repo.Create(ctx, User{UserID: tt.userID, Role: tt.role}); err != nil {
			t.Fatalf("Create(%d) returned error: %v", tt.userID, err)
		}

		allowed, err := repo.CanDecide(ctx, tt.userID)
		if err != nil {
			t.Fatalf("CanDecide(%d) returned error: %v", tt.userID, err)
		}
		if allowed != tt.expected {
			t.Fatalf("CanDecide for role %s = %v, want %v", tt.role, allowed, tt.expected)
		}
	}

	allowed, err := repo.CanDecide(ctx, 999)
	if err != nil {
		t.Fatalf("CanDecide for unknown user returned error: %v", err)
	}
	if allowed {
		t.Fatalf("expected unknown user to be denied")
	}
}

func TestTransactionRepositoryInsertPending(t *testing.T) {
	coll := newFakeTransactionCollection(t)
	repo := NewTransactionRepository(coll)
	ctx := context.Background()

	request := sampleRequest("req-1", "TXN1")
	id, err := repo.InsertPending(ctx, request)
	if err != nil {
		t.Fatalf("InsertPending returned error: %v", err)
	}
	if id != "req-1" {
		t.Fatalf("expected stored id req-1, got %s", id)
	}

	doc := coll.docFor(t, "_id", "req-1")
	assertStringField(t, doc, "status", string(StatusPending))
	assertStringField(t, doc, "transaction_id", "TXN1")
	assertStringField(t, doc, "amount", "500")
	assertTimeFieldSet(t, doc, "created_at")

	stored, err := repo.FindByID(ctx, "req-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if !stored.Amount.Equal(request.Amount.Decimal) {
		t.Fatalf("expected amount to round-trip, got %s", stored.Amount)
	}
}

func TestTransactionRepositoryRejectsDuplicateTransactionID(t *testing.T) {
	coll := newFakeTransactionCollection(t)
	repo := NewTransactionRepository(coll)
	ctx := context.Background()

	if _, err := repo.InsertPending(ctx, sampleRequest("req-1", "TXN1")); err != nil {
		t.Fatalf("first InsertPending returned error: %v", err)
	}

	_, err := repo.InsertPending(ctx, sampleRequest("req-2", "TXN1"))
	if !errors.Is(err, ErrDuplicateTransactionID) {
		t.Fatalf("expected ErrDuplicateTransactionID, got %v", err)
	}

	if coll.count() != 1 {
		t.Fatalf("expected exactly one stored request, got %d", coll.count())
	}
}

func TestTransactionRepositoryAllowsReuseAfterRejection(t *testing.T) {
	coll := newFakeTransactionCollection(t)
	repo := NewTransactionRepository(coll)
	ctx := context.Background()

	if _, err := repo.InsertPending(ctx, sampleRequest("req-1", "TXN1")); err != nil {
		t.Fatalf("first InsertPending returned error: %v", err)
	}
	if err := repo.Decide(ctx, "req-1", StatusRejected, 42); err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}

	if _, err := repo.InsertPending(ctx, sampleRequest("req-2", "TXN1")); err != nil {
		t.Fatalf("expected resubmission after rejection to succeed, got %v", err)
	}
}

func TestTransactionRepositoryDecideIsTerminal(t *testing.T) {
	coll := newFakeTransactionCollection(t)
	repo := NewTransactionRepository(coll)
	ctx := context.Background()

	if _, err := repo.InsertPending(ctx, sampleRequest("req-1", "TXN1")); err != nil {
		t.Fatalf("InsertPending returned error: %v", err)
	}

	if err := repo.Decide(ctx, "req-1", StatusApproved, 42); err != nil {
		t.Fatalf("first Decide returned error: %v", err)
	}

	err := repo.Decide(ctx, "req-1", StatusRejected, 43)
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}

	stored, err := repo.FindByID(ctx, "req-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if stored.Status != StatusApproved {
		t.Fatalf("expected status approved to stand, got %s", stored.Status)
	}
	if stored.DecidedBy != 42 {
		t.Fatalf("expected decided_by 42, got %d", stored.DecidedBy)
	}
}

func TestTransactionRepositoryDecideUnknownID(t *testing.T) {
	coll := newFakeTransactionCollection(t)
	repo := NewTransactionRepository(coll)

	err := repo.Decide(context.Background(), "missing", StatusApproved, 42)
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestRolePriority(t *testing.T) {
	tests := []struct {
		role     string
		expected int
	}{
		{RoleOwner, RolePriorityOwner},
		{RoleAdmin, RolePriorityAdmin},
		{RoleViewer, RolePriorityViewer},
		{RoleUser, RolePriorityUser},
		{"unknown", 0},
	}

	for _, tt := range tests {
		if got := RolePriority(tt.role); got != tt.expected {
			t.Fatalf("RolePriority(%s) = %d, want %d", tt.role, got, tt.expected)
		}
	}
}

func sampleRequest(id, txnID string) TransactionRequest {
	return TransactionRequest{
		ID:            id,
		PlayerID:      "P1",
		Amount:        NewAmount(decimal.NewFromInt(500)),
		WalletNumber:  "01770298685",
		PaymentMethod: "bKash",
		TransactionID: txnID,
		Kind:          KindDeposit,
		RequesterID:   777,
	}
}

// fakeTransactionCollection implements the collection subsets used by both
// repositories with an in-memory document map keyed by the document id field.
type fakeTransactionCollection struct {
	t    *testing.T
	docs map[string]bson.M
}

func newFakeTransactionCollection(t *testing.T) *fakeTransactionCollection {
	t.Helper()
	return &fakeTransactionCollection{
		t:    t,
		docs: make(map[string]bson.M),
	}
}

func (f *fakeTransactionCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	doc := marshalDoc(f.t, document)
	keyName, keyVal := idField(doc)
	if keyName == "" {
		return nil, fmt.Errorf("missing id field in %v", doc)
	}

	f.docs[f.key(keyName, keyVal)] = doc
	return &mongo.InsertOneResult{InsertedID: keyVal}, nil
}

func (f *fakeTransactionCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	filterDoc, ok := filter.(bson.M)
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, fmt.Errorf("unexpected filter type %T", filter), nil)
	}

	for _, idKey := range []string{"_id", "user_id", "chat_id"} {
		if val, ok := filterDoc[idKey]; ok {
			doc, found := f.docs[f.key(idKey, val)]
			if !found {
				return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
			}

			return mongo.NewSingleResultFromDocument(doc, nil, nil)
		}
	}

	return mongo.NewSingleResultFromDocument(bson.D{}, fmt.Errorf("missing id filter in %v", filterDoc), nil)
}

func (f *fakeTransactionCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	filterDoc, ok := filter.(bson.M)
	if !ok {
		return nil, fmt.Errorf("unexpected filter type %T", filter)
	}

	id, ok := filterDoc["_id"]
	if !ok {
		return nil, fmt.Errorf("missing _id filter in %v", filterDoc)
	}

	doc, found := f.docs[f.key("_id", id)]
	if !found {
		return &mongo.UpdateResult{}, nil
	}

	if wantStatus, ok := filterDoc["status"]; ok {
		if fmt.Sprintf("%v", doc["status"]) != fmt.Sprintf("%v", wantStatus) {
			return &mongo.UpdateResult{}, nil
		}
	}

	updateDoc, ok := update.(bson.M)
	if !ok {
		return nil, fmt.Errorf("unexpected update type %T", update)
	}
	if setDoc, ok := updateDoc["$set"].(bson.M); ok {
		for k, v := range marshalDoc(f.t, setDoc) {
			doc[k] = v
		}
	}

	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeTransactionCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	filterDoc, ok := filter.(bson.M)
	if !ok {
		return 0, fmt.Errorf("unexpected filter type %T", filter)
	}

	var count int64
	for _, doc := range f.docs {
		if matchesFilter(doc, filterDoc) {
			count++
		}
	}
	return count, nil
}

func matchesFilter(doc bson.M, filter bson.M) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if !ok {
			return false
		}

		switch w := want.(type) {
		case bson.M:
			values, ok := w["$in"].(bson.A)
			if !ok {
				return false
			}
			matched := false
			for _, v := range values {
				if fmt.Sprintf("%v", v) == fmt.Sprintf("%v", got) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			if fmt.Sprintf("%v", w) != fmt.Sprintf("%v", got) {
				return false
			}
		}
	}
	return true
}

func (f *fakeTransactionCollection) key(field string, value interface{}) string {
	return fmt.Sprintf("%s:%v", field, value)
}

func (f *fakeTransactionCollection) count() int {
	return len(f.docs)
}

func (f *fakeTransactionCollection) docFor(t *testing.T, field string, id interface{}) bson.M {
	t.Helper()

	doc, ok := f.docs[f.key(field, id)]
	if !ok {
		t.Fatalf("no document stored for %s=%v", field, id)
	}

	return doc
}

func marshalDoc(t *testing.T, document interface{}) bson.M {
	t.Helper()

	switch doc := document.(type) {
	case bson.M:
		return doc
	default:
		raw, err := bson.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}

		var out bson.M
		if err := bson.Unmarshal(raw, &out); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		return out
	}
}

func idField(doc bson.M) (string, interface{}) {
	for _, key := range []string{"_id", "user_id", "chat_id"} {
		if val, ok := doc[key]; ok {
			return key, val
		}
	}
	return "", nil
}

func assertStringField(t *testing.T, doc bson.M, field, expected string) {
	t.Helper()
	value, ok := doc[field]
	if !ok {
		t.Fatalf("expected %s field to be set", field)
	}
	if value != expected {
		t.Fatalf("expected %s=%s, got %v", field, expected, value)
	}
}

func assertTimeFieldSet(t *testing.T, doc bson.M, field string) {
	t.Helper()
	value, ok := doc[field]
	if !ok {
		t.Fatalf("expected %s field to be set", field)
	}

	parsed := parseTime(t, value)
	if parsed.IsZero() {
		t.Fatalf("expected %s to be non-zero", field)
	}
}

func parseTime(t *testing.T, value interface{}) time.Time {
	t.Helper()

	switch v := value.(type) {
	case primitive.DateTime:
		return v.Time()
	case time.Time:
		return v
	default:
		t.Fatalf("expected time value, got %T", value)
		return time.Time{}
	}
}
