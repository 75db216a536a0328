package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coachline/registration-backend/internal/data/repos"
	"github.com/coachline/registration-backend/internal/data/repos/testutil"
	types "github.com/coachline/registration-backend/internal/domain"
	conv "github.com/coachline/registration-backend/internal/domain/conversation"
	"github.com/coachline/registration-backend/internal/pkg/dbctx"
	"github.com/coachline/registration-backend/internal/pkg/pointers"
)

// fakeExtractor plays back scripted results, one per turn.
type fakeExtractor struct {
	results []*ExtractionResult
	errs    []error
	calls   int
}

func (f *fakeExtractor) Extract(ctx context.Context, message string, convCtx conv.Context, state conv.State) (*ExtractionResult, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return &ExtractionResult{Message: "ok"}, nil
}

// fakeInventory counts lookups so tests can assert a turn never hit it.
type fakeInventory struct {
	sessions []*types.Session
	err      error
	calls    int
}

func (f *fakeInventory) ListCandidateSessions(ctx context.Context, organizationID uuid.UUID) ([]*types.Session, error) {
	f.calls++
	return f.sessions, f.err
}

type convFixture struct {
	db        *gorm.DB
	org       *types.Organization
	extractor *fakeExtractor
	inventory *fakeInventory
	svc       ConversationService
}

func newConvFixture(t *testing.T, extractor *fakeExtractor, inventory *fakeInventory) *convFixture {
	t.Helper()
	log := testutil.Logger(t)
	gdb := testutil.DB(t)
	org := testutil.SeedOrganization(t, context.Background(), gdb, "riverside")

	svc := NewConversationService(
		log,
		repos.NewConversationRepo(gdb, log),
		repos.NewOrganizationRepo(gdb, log),
		repos.NewSessionRepo(gdb, log),
		inventory,
		extractor,
		time.Second,
	)
	return &convFixture{db: gdb, org: org, extractor: extractor, inventory: inventory, svc: svc}
}

func (f *convFixture) storedContext(t *testing.T, conversationID uuid.UUID) conv.Context {
	t.Helper()
	row, err := f.svc.GetConversation(context.Background(), conversationID)
	if err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	var out conv.Context
	if len(row.Context) > 0 {
		if err := json.Unmarshal(row.Context, &out); err != nil {
			t.Fatalf("decode stored context: %v", err)
		}
	}
	return out
}

func TestProcessTurnAccumulatesFactsAcrossTurns(t *testing.T) {
	f := newConvFixture(t, &fakeExtractor{
		results: []*ExtractionResult{
			{Message: "Nice to meet Emma! How old is she?",
				ExtractedData: ExtractedFacts{ChildName: pointers.String("Emma")}},
			{Message: "Got it. What days work best?",
				ExtractedData: ExtractedFacts{ChildAge: pointers.Int(7)}},
		},
	}, &fakeInventory{})

	first, err := f.svc.ProcessTurn(context.Background(), TurnInput{
		OrganizationID: f.org.ID,
		Message:        "Hi, I'd like to sign up my daughter Emma",
	})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if !first.Success || first.Response == nil {
		t.Fatalf("first turn not successful: %+v", first)
	}
	if first.Response.NextState != conv.StateCollectingChildInfo {
		t.Fatalf("after name only: state %s", first.Response.NextState)
	}

	convID := first.Response.ConversationID
	second, err := f.svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: &convID,
		OrganizationID: f.org.ID,
		Message:        "She's 7",
	})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if second.Response.NextState != conv.StateCollectingPreferences {
		t.Fatalf("after name and age: state %s", second.Response.NextState)
	}

	stored := f.storedContext(t, convID)
	if stored.ChildName == nil || *stored.ChildName != "Emma" {
		t.Fatalf("name lost across turns: %+v", stored)
	}
	if stored.ChildAge == nil || *stored.ChildAge != 7 {
		t.Fatalf("age not stored: %+v", stored)
	}
	if f.inventory.calls != 0 {
		t.Fatalf("inventory queried before preferences were known")
	}
}

func TestProcessTurnRecommendsMatchingSession(t *testing.T) {
	extractor := &fakeExtractor{
		results: []*ExtractionResult{
			{Message: "Here's what I found:",
				ExtractedData: ExtractedFacts{
					ChildName:          pointers.String("Emma"),
					ChildAge:           pointers.Int(7),
					PreferredDays:      []int{3},
					PreferredTimeOfDay: pointers.String("morning"),
				},
				NextState: string(conv.StateShowingRecommendations)},
		},
	}
	f := newConvFixture(t, extractor, &fakeInventory{})

	ctx := context.Background()
	loc := testutil.SeedLocation(t, ctx, f.db, f.org.ID, "North Field")
	program := testutil.SeedProgram(t, ctx, f.db, f.org.ID, "Junior Soccer")
	match := testutil.SeedSession(t, ctx, f.db, program.ID, loc.ID, testutil.SessionSpec{
		DayOfWeek: 3, StartTime: "10:00", MinAge: 4, MaxAge: 10,
	})
	// Saturday session should not appear for a Wednesday request.
	testutil.SeedSession(t, ctx, f.db, program.ID, loc.ID, testutil.SessionSpec{
		DayOfWeek: 6, StartTime: "10:00", MinAge: 4, MaxAge: 10,
	})
	f.inventory.sessions = listAll(t, f.db, f.org.ID)

	result, err := f.svc.ProcessTurn(ctx, TurnInput{
		OrganizationID: f.org.ID,
		Message:        "Emma is 7, Wednesday mornings work",
	})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	resp := result.Response
	if resp.NextState != conv.StateShowingRecommendations {
		t.Fatalf("state %s, want showing_recommendations", resp.NextState)
	}
	if len(resp.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(resp.Recommendations))
	}
	rec := resp.Recommendations[0]
	if rec.SessionID != match.ID {
		t.Fatalf("recommended wrong session")
	}
	if rec.DayName != "Wednesday" || rec.FormattedTime != "10:00 AM" {
		t.Fatalf("display fields wrong: %+v", rec)
	}
	if rec.ProgramName != "Junior Soccer" || rec.LocationName != "North Field" {
		t.Fatalf("preloaded names missing: %+v", rec)
	}
}

func TestProcessTurnInvalidAgeIsCorrectedWithoutLookup(t *testing.T) {
	extractor := &fakeExtractor{
		results: []*ExtractionResult{
			{ExtractedData: ExtractedFacts{ChildName: pointers.String("Emma")}},
			{ExtractedData: ExtractedFacts{
				ChildAge:      pointers.Int(20),
				PreferredDays: []int{3},
			}},
		},
	}
	f := newConvFixture(t, extractor, &fakeInventory{})

	ctx := context.Background()
	first, err := f.svc.ProcessTurn(ctx, TurnInput{OrganizationID: f.org.ID, Message: "This is for Emma"})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	convID := first.Response.ConversationID

	second, err := f.svc.ProcessTurn(ctx, TurnInput{
		ConversationID: &convID,
		OrganizationID: f.org.ID,
		Message:        "She's 20, Wednesdays",
	})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if !second.Success {
		t.Fatalf("a corrective turn is still a successful turn")
	}
	resp := second.Response
	if resp.NextState != first.Response.NextState {
		t.Fatalf("state moved on a rejected turn: %s -> %s", first.Response.NextState, resp.NextState)
	}
	if !strings.Contains(resp.Message, "2") || !strings.Contains(resp.Message, "18") {
		t.Fatalf("corrective message should name the accepted range: %q", resp.Message)
	}
	if f.inventory.calls != 0 {
		t.Fatalf("session lookup ran on a corrective turn")
	}

	stored := f.storedContext(t, convID)
	if stored.ChildAge != nil || stored.PreferredDays != nil {
		t.Fatalf("rejected turn leaked facts into storage: %+v", stored)
	}
	if stored.ChildName == nil || *stored.ChildName != "Emma" {
		t.Fatalf("earlier facts lost on a rejected turn: %+v", stored)
	}
}

func TestProcessTurnExtractorFailureFallsBackToForm(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"provider error", context.Canceled, errCodeAIError},
		{"timeout", context.DeadlineExceeded, errCodeAITimeout},
	}
	for _, tc := range tests {
		f := newConvFixture(t, &fakeExtractor{errs: []error{tc.err}}, &fakeInventory{})
		result, err := f.svc.ProcessTurn(context.Background(), TurnInput{
			OrganizationID: f.org.ID,
			Message:        "hello",
		})
		if err != nil {
			t.Fatalf("%s: a collaborator failure must not surface as a transport error: %v", tc.name, err)
		}
		if result.Success {
			t.Fatalf("%s: degraded turn marked successful", tc.name)
		}
		if result.Error == nil || result.Error.Code != tc.wantCode {
			t.Fatalf("%s: error = %+v, want code %s", tc.name, result.Error, tc.wantCode)
		}
		if !result.Error.FallbackToForm {
			t.Fatalf("%s: fallback_to_form not set", tc.name)
		}
	}
}

func TestProcessTurnInventoryOutageDegradesToNoMatches(t *testing.T) {
	extractor := &fakeExtractor{
		results: []*ExtractionResult{
			{ExtractedData: ExtractedFacts{
				ChildName:     pointers.String("Emma"),
				ChildAge:      pointers.Int(7),
				PreferredDays: []int{3},
			}},
		},
	}
	f := newConvFixture(t, extractor, &fakeInventory{err: context.DeadlineExceeded})

	result, err := f.svc.ProcessTurn(context.Background(), TurnInput{
		OrganizationID: f.org.ID,
		Message:        "Emma, 7, Wednesdays",
	})
	if err != nil {
		t.Fatalf("inventory outage crashed the turn: %v", err)
	}
	resp := result.Response
	if !result.Success || resp.NextState != conv.StateShowingRecommendations {
		t.Fatalf("degraded turn should keep moving: %+v", result)
	}
	if len(resp.Recommendations) != 0 {
		t.Fatalf("recommendations from a failed inventory read")
	}
	if !resp.RecommendWaitlist {
		t.Fatalf("zero matches with no alternatives should offer the waitlist")
	}
}

func TestProcessTurnFlexibleNoMatchSkipsAlternatives(t *testing.T) {
	extractor := &fakeExtractor{
		results: []*ExtractionResult{
			{ExtractedData: ExtractedFacts{
				ChildName:          pointers.String("Emma"),
				ChildAge:           pointers.Int(7),
				PreferredDays:      []int{0, 1, 2, 3, 4, 5, 6},
				PreferredTimeOfDay: pointers.String("any"),
			}},
		},
	}
	f := newConvFixture(t, extractor, &fakeInventory{})

	result, err := f.svc.ProcessTurn(context.Background(), TurnInput{
		OrganizationID: f.org.ID,
		Message:        "any day is fine",
	})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	resp := result.Response
	if !resp.RecommendWaitlist {
		t.Fatalf("flexible no-match should offer the waitlist")
	}
	if resp.RequestedIssue != "" || len(resp.Recommendations) != 0 {
		t.Fatalf("flexible no-match should not run the alternative search: %+v", resp)
	}
}

func TestProcessTurnFullRequestedSessionGetsAlternatives(t *testing.T) {
	extractor := &fakeExtractor{
		results: []*ExtractionResult{
			{ExtractedData: ExtractedFacts{
				ChildName:          pointers.String("Emma"),
				ChildAge:           pointers.Int(7),
				PreferredDays:      []int{6},
				PreferredTimeOfDay: pointers.String("morning"),
			}},
		},
	}
	f := newConvFixture(t, extractor, &fakeInventory{})

	ctx := context.Background()
	loc := testutil.SeedLocation(t, ctx, f.db, f.org.ID, "North Field")
	program := testutil.SeedProgram(t, ctx, f.db, f.org.ID, "Junior Soccer")
	testutil.SeedSession(t, ctx, f.db, program.ID, loc.ID, testutil.SessionSpec{
		DayOfWeek: 6, StartTime: "09:00", Capacity: 10, EnrolledCount: 10,
	})
	sunday := testutil.SeedSession(t, ctx, f.db, program.ID, loc.ID, testutil.SessionSpec{
		DayOfWeek: 0, StartTime: "09:00",
	})
	f.inventory.sessions = listAll(t, f.db, f.org.ID)

	result, err := f.svc.ProcessTurn(ctx, TurnInput{
		OrganizationID: f.org.ID,
		Message:        "Saturday mornings for Emma, she's 7",
	})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	resp := result.Response
	if resp.RequestedIssue != IssueFull {
		t.Fatalf("requested issue %q, want %q", resp.RequestedIssue, IssueFull)
	}
	if !strings.Contains(resp.Message, "full") {
		t.Fatalf("reply should say the session is full: %q", resp.Message)
	}
	if len(resp.Recommendations) != 1 || resp.Recommendations[0].SessionID != sunday.ID {
		t.Fatalf("expected the adjacent Sunday session as the alternative: %+v", resp.Recommendations)
	}
	if resp.Recommendations[0].Reason != "adjacent_day" {
		t.Fatalf("alternative reason %q", resp.Recommendations[0].Reason)
	}
}

func TestProcessTurnEventFlow(t *testing.T) {
	f := newConvFixture(t, &fakeExtractor{}, &fakeInventory{})

	ctx := context.Background()
	loc := testutil.SeedLocation(t, ctx, f.db, f.org.ID, "North Field")
	program := testutil.SeedProgram(t, ctx, f.db, f.org.ID, "Junior Soccer")
	session := testutil.SeedSession(t, ctx, f.db, program.ID, loc.ID, testutil.SessionSpec{DayOfWeek: 3})

	// Put a conversation into showing_recommendations directly.
	log := testutil.Logger(t)
	convRepo := repos.NewConversationRepo(f.db, log)
	row, err := convRepo.Create(dbctx.Context{Ctx: ctx}, f.org.ID, nil)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if err := convRepo.UpdateStateContext(dbctx.Context{Ctx: ctx}, row.ID, conv.StateShowingRecommendations, conv.Context{}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	turn := func(event string, sessionID *uuid.UUID) *TurnResult {
		t.Helper()
		result, err := f.svc.ProcessTurn(ctx, TurnInput{
			ConversationID: &row.ID,
			OrganizationID: f.org.ID,
			Event:          event,
			SessionID:      sessionID,
		})
		if err != nil {
			t.Fatalf("event %s: %v", event, err)
		}
		return result
	}

	result := turn(EventSelectSession, &session.ID)
	if result.Response.NextState != conv.StateConfirmingSelection {
		t.Fatalf("after select: %s", result.Response.NextState)
	}
	result = turn(EventConfirmSelection, nil)
	if result.Response.NextState != conv.StateCollectingPayment {
		t.Fatalf("after confirm: %s", result.Response.NextState)
	}
	result = turn(EventPaymentCompleted, nil)
	if result.Response.NextState != conv.StateConfirmed {
		t.Fatalf("after payment: %s", result.Response.NextState)
	}
	if result.Response.Progress != 100 {
		t.Fatalf("confirmed progress %d", result.Response.Progress)
	}
	if f.extractor.calls != 0 {
		t.Fatalf("event turns must not call the extractor")
	}
}

func TestProcessTurnSelectSessionRejectsForeignSession(t *testing.T) {
	f := newConvFixture(t, &fakeExtractor{}, &fakeInventory{})

	ctx := context.Background()
	otherOrg := testutil.SeedOrganization(t, ctx, f.db, "other-club")
	otherLoc := testutil.SeedLocation(t, ctx, f.db, otherOrg.ID, "Their Gym")
	otherProgram := testutil.SeedProgram(t, ctx, f.db, otherOrg.ID, "Their Hoops")
	foreign := testutil.SeedSession(t, ctx, f.db, otherProgram.ID, otherLoc.ID, testutil.SessionSpec{DayOfWeek: 2})

	log := testutil.Logger(t)
	convRepo := repos.NewConversationRepo(f.db, log)
	row, err := convRepo.Create(dbctx.Context{Ctx: ctx}, f.org.ID, nil)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if err := convRepo.UpdateStateContext(dbctx.Context{Ctx: ctx}, row.ID, conv.StateShowingRecommendations, conv.Context{}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	_, err = f.svc.ProcessTurn(ctx, TurnInput{
		ConversationID: &row.ID,
		OrganizationID: f.org.ID,
		Event:          EventSelectSession,
		SessionID:      &foreign.ID,
	})
	if err == nil {
		t.Fatalf("selecting another organization's session must fail")
	}
}

func TestProcessTurnUnknownConversation(t *testing.T) {
	f := newConvFixture(t, &fakeExtractor{}, &fakeInventory{})
	missing := uuid.New()
	_, err := f.svc.ProcessTurn(context.Background(), TurnInput{
		ConversationID: &missing,
		OrganizationID: f.org.ID,
		Message:        "hi",
	})
	if err == nil {
		t.Fatalf("unknown conversation id must fail")
	}
}

// listAll loads every seeded session with its associations, the shape
// the inventory hands the matcher.
func listAll(t *testing.T, gdb *gorm.DB, orgID uuid.UUID) []*types.Session {
	t.Helper()
	log := testutil.Logger(t)
	repo := repos.NewSessionRepo(gdb, log)
	sessions, err := repo.ListCandidates(dbctx.Context{Ctx: context.Background()}, orgID, time.Now().UTC().AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	return sessions
}
