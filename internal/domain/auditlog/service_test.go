package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/pkg/pagination"
)

func TestRecordAppendsEntry(t *testing.T) {
	repo := NewRepoMem()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	recID := int64(4)
	svc.Record(ctx, Entry{
		ActorID:   7,
		ActorRole: identity.RoleClinician,
		Action:    ActionFileUploaded,
		RecordID:  &recID,
		Changes:   map[string]interface{}{"title": "Bloodwork"},
		IP:        "10.0.0.1",
	})

	entries, total, err := repo.ListByActor(ctx, 7, 10, 0)
	if err != nil {
		t.Fatalf("ListByActor: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	e := entries[0]
	if e.ID == 0 || e.CreatedAt.IsZero() {
		t.Errorf("entry not stamped: %+v", e)
	}
	if e.Action != ActionFileUploaded || *e.RecordID != recID {
		t.Errorf("entry = %+v", e)
	}
}

type failingRepo struct{}

func (failingRepo) Append(context.Context, *Entry) error { return errors.New("insert failed") }
func (failingRepo) ListByActor(context.Context, int64, int, int) ([]*Entry, int, error) {
	return nil, 0, nil
}

func TestRecordSwallowsAppendFailure(t *testing.T) {
	svc := NewService(failingRepo{}, zerolog.Nop())

	// Must not panic or propagate; the primary action already happened.
	svc.Record(context.Background(), Entry{ActorID: 1, Action: ActionNoteAdded})
}

func TestListByActorScopesAndPaginates(t *testing.T) {
	repo := NewRepoMem()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Record(ctx, Entry{ActorID: 1, ActorRole: identity.RoleClinician, Action: ActionRecordUpdated})
	}
	svc.Record(ctx, Entry{ActorID: 2, ActorRole: identity.RoleClinician, Action: ActionNoteAdded})

	entries, total, err := svc.ListByActor(ctx, 1, 2, 2)
	if err != nil {
		t.Fatalf("ListByActor: %v", err)
	}
	if total != 5 || len(entries) != 2 {
		t.Errorf("total = %d len = %d, want 5 and 2", total, len(entries))
	}
	for _, e := range entries {
		if e.ActorID != 1 {
			t.Errorf("foreign entry leaked: %+v", e)
		}
	}
}

func TestListMineHandler(t *testing.T) {
	repo := NewRepoMem()
	svc := NewService(repo, zerolog.Nop())
	for i := 0; i < 3; i++ {
		svc.Record(context.Background(), Entry{ActorID: 9, ActorRole: identity.RoleClinician, Action: ActionReminderSent})
	}

	h := NewHandler(svc)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/audit-logs?limit=2", nil)
	req = req.WithContext(auth.WithActor(req.Context(), &auth.Claims{UserID: 9, Role: identity.RoleClinician}))
	rec := httptest.NewRecorder()

	if err := h.ListMine(e.NewContext(req, rec)); err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || resp.Limit != 2 || !resp.HasMore {
		t.Errorf("response = %+v", resp)
	}
}
