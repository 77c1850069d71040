package service

import (
	"context"
	"fmt"

	"github.com/garyjia/claims-workflow/internal/application/dispatcher"
	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/event"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// NotificationConfig maps audiences to chat ids. An empty id silences that audience.
type NotificationConfig struct {
	CoordinatorChatID string
	ManagerChatID     string
	FinanceChatID     string
}

// NotificationService tells the next approver that a claim needs attention,
// finance that an approved claim is payable, and the coordinators when a
// claim is rejected
type NotificationService interface {
	// Register subscribes the service to workflow events
	Register(d dispatcher.Dispatcher)
	HandleStageChanged(ctx context.Context, evt *event.Event) error
	HandleClaimFinalized(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	sender       port.MessageSender
	lecturerRepo port.LecturerRepository
	config       NotificationConfig
	logger       Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	sender port.MessageSender,
	lecturerRepo port.LecturerRepository,
	config NotificationConfig,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		sender:       sender,
		lecturerRepo: lecturerRepo,
		config:       config,
		logger:       logger,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeStageChanged, "approver-notifications", s.HandleStageChanged)
	d.SubscribeNamed(event.TypeClaimFinalized, "outcome-notifications", s.HandleClaimFinalized)
}

// HandleStageChanged tells the role that acts next
func (s *notificationServiceImpl) HandleStageChanged(ctx context.Context, evt *event.Event) error {
	switch entity.Role(evt.GetPayloadString(event.KeyNextRole)) {
	case entity.RoleCoordinator:
		return s.send(ctx, evt, s.config.CoordinatorChatID,
			s.subject(ctx, evt)+" is awaiting coordinator review.")
	case entity.RoleManager:
		return s.send(ctx, evt, s.config.ManagerChatID,
			fmt.Sprintf("%s was verified by %s and is awaiting manager approval.",
				s.subject(ctx, evt), evt.GetPayloadString(event.KeyActorID)))
	default:
		return nil
	}
}

// HandleClaimFinalized sends approved claims to finance and rejections to
// the coordinators
func (s *notificationServiceImpl) HandleClaimFinalized(ctx context.Context, evt *event.Event) error {
	switch domainwf.Stage(evt.GetPayloadString(event.KeyNewStage)) {
	case domainwf.StageApproved:
		msg := s.subject(ctx, evt) + " is approved and ready for payment."
		if evt.GetPayloadBool(event.KeyAutoApproved) {
			msg = s.subject(ctx, evt) + " was auto-approved and is ready for payment."
		}
		return s.send(ctx, evt, s.config.FinanceChatID, msg)
	case domainwf.StageRejected:
		msg := fmt.Sprintf("%s was rejected by %s (%s).", s.subject(ctx, evt),
			evt.GetPayloadString(event.KeyActorID), evt.GetPayloadString(event.KeyActorRole))
		// a lecturer only ever triggers the submission outcome
		if entity.Role(evt.GetPayloadString(event.KeyActorRole)) == entity.RoleLecturer {
			msg = s.subject(ctx, evt) + " was rejected automatically by policy validation."
		}
		return s.send(ctx, evt, s.config.CoordinatorChatID, msg)
	default:
		return nil
	}
}

func (s *notificationServiceImpl) subject(ctx context.Context, evt *event.Event) string {
	return fmt.Sprintf("Claim #%d from %s (R%.2f)", evt.ClaimID,
		s.lecturerName(ctx, evt.GetPayloadString(event.KeyUserID)),
		evt.GetPayloadFloat(event.KeyTotalAmount))
}

func (s *notificationServiceImpl) send(ctx context.Context, evt *event.Event, chatID, text string) error {
	if chatID == "" {
		return nil
	}
	if err := s.sender.SendText(ctx, chatID, text); err != nil {
		s.logger.Error("Failed to send notification", "claim_id", evt.ClaimID, "chat_id", chatID, "error", err)
		return fmt.Errorf("notify %s: %w", chatID, err)
	}
	s.logger.Info("Notification sent", "claim_id", evt.ClaimID, "chat_id", chatID)
	return nil
}

// lecturerName falls back to the user id when the profile is missing or unreadable
func (s *notificationServiceImpl) lecturerName(ctx context.Context, userID string) string {
	if s.lecturerRepo == nil || userID == "" {
		return userID
	}
	lecturer, err := s.lecturerRepo.GetByUserID(ctx, userID)
	if err != nil || lecturer == nil {
		return userID
	}
	return lecturer.DisplayName()
}
