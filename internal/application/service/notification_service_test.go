package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/garyjia/claims-workflow/internal/application/dispatcher"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/event"
)

var testChats = NotificationConfig{
	CoordinatorChatID: "oc_coordinators",
	ManagerChatID:     "oc_managers",
	FinanceChatID:     "oc_finance",
}

func workflowEvent(eventType event.Type, newStage string, nextRole entity.Role, actorRole entity.Role, autoApproved bool) *event.Event {
	return event.NewEvent(eventType, 12, 3, map[string]interface{}{
		event.KeyNewStage:     newStage,
		event.KeyNextRole:     nextRole.String(),
		event.KeyUserID:       "lect-1",
		event.KeyActorID:      "coord-1",
		event.KeyActorRole:    actorRole.String(),
		event.KeyTotalAmount:  8000.0,
		event.KeyAutoApproved: autoApproved,
	})
}

func stageEvent(newStage string, nextRole entity.Role, autoApproved bool) *event.Event {
	return workflowEvent(event.TypeStageChanged, newStage, nextRole, entity.RoleCoordinator, autoApproved)
}

func finalizedEvent(newStage string, actorRole entity.Role, autoApproved bool) *event.Event {
	return workflowEvent(event.TypeClaimFinalized, newStage, entity.RoleNone, actorRole, autoApproved)
}

func TestNotificationHandlers(t *testing.T) {
	tests := []struct {
		name     string
		evt      *event.Event
		wantChat []string
		wantText string
	}{
		{
			name:     "awaiting coordinator",
			evt:      stageEvent("UnderReview", entity.RoleCoordinator, false),
			wantChat: []string{"oc_coordinators"},
			wantText: "Claim #12 from Thandi Nkosi (R8000.00) is awaiting coordinator review.",
		},
		{
			name:     "awaiting manager",
			evt:      stageEvent("Verified", entity.RoleManager, false),
			wantChat: []string{"oc_managers"},
			wantText: "was verified by coord-1 and is awaiting manager approval.",
		},
		{
			name: "terminal stage change has no next approver",
			evt:  stageEvent("Approved", entity.RoleNone, false),
		},
		{
			name:     "approved goes to finance",
			evt:      finalizedEvent("Approved", entity.RoleManager, false),
			wantChat: []string{"oc_finance"},
			wantText: "is approved and ready for payment.",
		},
		{
			name:     "auto-approved goes to finance",
			evt:      finalizedEvent("Approved", entity.RoleLecturer, true),
			wantChat: []string{"oc_finance"},
			wantText: "was auto-approved and is ready for payment.",
		},
		{
			name:     "reviewer rejection goes to coordinators",
			evt:      finalizedEvent("Rejected", entity.RoleManager, false),
			wantChat: []string{"oc_coordinators"},
			wantText: "was rejected by coord-1 (Manager).",
		},
		{
			name:     "automatic rejection goes to coordinators",
			evt:      finalizedEvent("Rejected", entity.RoleLecturer, false),
			wantChat: []string{"oc_coordinators"},
			wantText: "Claim #12 from Thandi Nkosi (R8000.00) was rejected automatically by policy validation.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{}
			lecturers := newMockLecturerRepo(&entity.Lecturer{UserID: "lect-1", FullName: "Thandi Nkosi"})
			svc := NewNotificationService(sender, lecturers, testChats, &mockLogger{})

			handle := svc.HandleStageChanged
			if tt.evt.Type == event.TypeClaimFinalized {
				handle = svc.HandleClaimFinalized
			}
			if err := handle(context.Background(), tt.evt); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			sent := sender.messages()
			if len(sent) != len(tt.wantChat) {
				t.Fatalf("expected %d messages, got %d: %+v", len(tt.wantChat), len(sent), sent)
			}
			for i, chat := range tt.wantChat {
				if sent[i].chatID != chat {
					t.Errorf("message %d went to %s, want %s", i, sent[i].chatID, chat)
				}
				if !strings.Contains(sent[i].text, tt.wantText) {
					t.Errorf("message %q does not contain %q", sent[i].text, tt.wantText)
				}
			}
		})
	}
}

func TestHandleStageChanged_UnconfiguredChatIsSkipped(t *testing.T) {
	sender := &mockSender{}
	svc := NewNotificationService(sender, nil, NotificationConfig{FinanceChatID: "oc_finance"}, &mockLogger{})

	if err := svc.HandleStageChanged(context.Background(), stageEvent("UnderReview", entity.RoleCoordinator, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.messages()) != 0 {
		t.Error("no coordinator chat configured, nothing should be sent")
	}
}

func TestHandleStageChanged_LecturerLookupFallsBack(t *testing.T) {
	sender := &mockSender{}
	lecturers := newMockLecturerRepo()
	lecturers.err = errors.New("database is locked")
	svc := NewNotificationService(sender, lecturers, testChats, &mockLogger{})

	if err := svc.HandleStageChanged(context.Background(), stageEvent("UnderReview", entity.RoleCoordinator, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs := sender.messages(); len(msgs) != 1 || !strings.Contains(msgs[0].text, "from lect-1 ") {
		t.Errorf("expected user id fallback, got %+v", msgs)
	}
}

func TestHandleStageChanged_SendFailure(t *testing.T) {
	errLark := errors.New("lark unavailable")
	sender := &mockSender{err: errLark}
	logger := &mockLogger{}
	svc := NewNotificationService(sender, nil, testChats, logger)

	err := svc.HandleStageChanged(context.Background(), stageEvent("Verified", entity.RoleManager, false))
	if !errors.Is(err, errLark) {
		t.Errorf("expected send error, got %v", err)
	}
	if len(logger.errors) != 1 {
		t.Errorf("expected failure to be logged once, got %d", len(logger.errors))
	}
}

func TestRegister_DeliversThroughDispatcher(t *testing.T) {
	sender := &mockSender{}
	svc := NewNotificationService(sender, nil, testChats, &mockLogger{})
	d := dispatcher.NewDispatcher()
	svc.Register(d)

	handlers := d.ListHandlers(event.TypeStageChanged)
	if len(handlers) != 1 || handlers[0].Name != "approver-notifications" {
		t.Fatalf("unexpected stage handlers: %+v", handlers)
	}
	handlers = d.ListHandlers(event.TypeClaimFinalized)
	if len(handlers) != 1 || handlers[0].Name != "outcome-notifications" {
		t.Fatalf("unexpected finalized handlers: %+v", handlers)
	}

	d.DispatchAsync(context.Background(), stageEvent("UnderReview", entity.RoleCoordinator, false))
	d.DispatchAsync(context.Background(), finalizedEvent("Approved", entity.RoleManager, false))
	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if len(sender.messages()) != 2 {
		t.Errorf("expected two messages, got %d", len(sender.messages()))
	}
}
