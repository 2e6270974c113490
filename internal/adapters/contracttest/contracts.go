package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evcharge/charging-stations-api/internal/domain"
	bookingrepoport "github.com/evcharge/charging-stations-api/internal/ports/out/bookingrepo"
	idempotencyport "github.com/evcharge/charging-stations-api/internal/ports/out/idempotency"
)

type CleanupFunc = func()

type BookingRepoFactory func(t *testing.T) (bookingrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.SubjectID("sub-1"),
		Route:    "POST /bookings",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Body hash is part of the identity.
	withBody := fp
	withBody.BodyHash = "hash-abc"
	if _, ok, err := store.Get(ctx, withBody); err != nil || ok {
		t.Fatalf("expected miss for different body hash, got ok=%v err=%v", ok, err)
	}
}

// RunBookingRepo exercises the ownership and ordering rules every booking
// repository must honour.
func RunBookingRepo(t *testing.T, newRepo BookingRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Subjects are unique per run so shared backends don't see each other's data.
	run := uuid.NewString()
	u1 := domain.SubjectID("u1-" + run)
	u2 := domain.SubjectID("u2-" + run)

	base := time.Unix(1700000000, 0).UTC()
	mk := func(i int, user domain.SubjectID) domain.Booking {
		return domain.Booking{
			ID:        domain.BookingID("bk-" + uuid.NewString()),
			UserID:    user,
			StationID: "st-001",
			SlotFrom:  "2024-01-01T10:00:00Z",
			SlotTo:    "2024-01-01T11:00:00Z",
			Status:    domain.BookingStatusCreated,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
	}

	first := mk(0, u1)
	foreign := mk(1, u2)
	second := mk(2, u1)
	for _, b := range []domain.Booking{first, foreign, second} {
		if err := repo.Insert(ctx, b); err != nil {
			t.Fatalf("Insert(%s): %v", b.ID, err)
		}
	}

	// Duplicate id.
	dup := second
	dup.UserID = u2
	if err := repo.Insert(ctx, dup); !errors.Is(err, bookingrepoport.ErrAlreadyExists) {
		t.Fatalf("Insert duplicate: err=%v want ErrAlreadyExists", err)
	}

	// Only own bookings, newest first.
	got, err := repo.ListByUser(ctx, u1)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("ListByUser(u1) = %+v", ids(got))
	}
	for _, b := range got {
		if b.UserID != u1 {
			t.Fatalf("foreign booking leaked: %+v", b)
		}
		if b.Status != domain.BookingStatusCreated || b.StationID != "st-001" || b.SlotFrom != first.SlotFrom || b.SlotTo != first.SlotTo {
			t.Fatalf("unexpected record: %+v", b)
		}
	}

	// Foreign cancel is a not-found and does not mutate.
	if _, err := repo.Cancel(ctx, u2, first.ID); !errors.Is(err, bookingrepoport.ErrNotFound) {
		t.Fatalf("Cancel foreign: err=%v want ErrNotFound", err)
	}
	got, _ = repo.ListByUser(ctx, u1)
	if got[1].Status != domain.BookingStatusCreated {
		t.Fatalf("foreign cancel mutated record: %+v", got[1])
	}

	// Unknown id.
	if _, err := repo.Cancel(ctx, u1, "bk-missing-"+domain.BookingID(run)); !errors.Is(err, bookingrepoport.ErrNotFound) {
		t.Fatalf("Cancel unknown: err=%v want ErrNotFound", err)
	}

	// Owner cancel, twice.
	for i := 0; i < 2; i++ {
		b, err := repo.Cancel(ctx, u1, first.ID)
		if err != nil {
			t.Fatalf("Cancel #%d: %v", i+1, err)
		}
		if b.Status != domain.BookingStatusCancelled || b.ID != first.ID {
			t.Fatalf("Cancel #%d returned %+v", i+1, b)
		}
	}
	got, _ = repo.ListByUser(ctx, u1)
	if len(got) != 2 || got[1].Status != domain.BookingStatusCancelled || got[0].Status != domain.BookingStatusCreated {
		t.Fatalf("after cancel: %+v", got)
	}

	// ListAll contains every booking of this run, newest first.
	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	var mine []domain.BookingID
	for _, b := range all {
		if b.UserID == u1 || b.UserID == u2 {
			mine = append(mine, b.ID)
		}
	}
	want := []domain.BookingID{second.ID, foreign.ID, first.ID}
	if len(mine) != len(want) {
		t.Fatalf("ListAll ids=%v want %v", mine, want)
	}
	for i := range want {
		if mine[i] != want[i] {
			t.Fatalf("ListAll ids=%v want %v", mine, want)
		}
	}
}

func ids(bs []domain.Booking) []domain.BookingID {
	out := make([]domain.BookingID, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}
