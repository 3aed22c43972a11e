package service

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CategoryService manages ticket categories.
type CategoryService struct {
	categories repository.CategoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func NewCategoryService(categories repository.CategoryRepository, dispatcher events.Dispatcher, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{categories: categories, dispatcher: dispatcher, logger: logger}
}

func (s *CategoryService) List(ctx context.Context) ([]domain.TicketCategory, error) {
	return s.categories.List(ctx)
}

func (s *CategoryService) ListByServer(ctx context.Context, serverID string) ([]domain.TicketCategory, error) {
	return s.categories.ListByServer(ctx, serverID)
}

// Create stores a category; an empty color takes the default.
func (s *CategoryService) Create(ctx context.Context, actor Actor, in domain.CategoryInput) (*domain.TicketCategory, error) {
	in.Name = normalizeText(in.Name)
	fields := map[string]any{}
	if in.Name == "" {
		fields["name"] = "required"
	}
	if in.Color != "" && !hexColor.MatchString(in.Color) {
		fields["color"] = "must be a #RRGGBB hex color"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("Invalid category data", fields)
	}

	category, err := s.categories.Create(ctx, in)
	if err != nil {
		return nil, mapRepoErr(err, "Category")
	}

	if s.dispatcher != nil {
		event := events.NewEvent(events.EventCategoryCreated, actor.eventActor(), *category)
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return category, nil
}
