package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketCounts aggregates tickets by status.
type TicketCounts struct {
	Total   int `json:"total"`
	Open    int `json:"open"`
	Closed  int `json:"closed"`
	Pending int `json:"pending"`
}

// CategoryStat is the per-category breakdown.
type CategoryStat struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
	OpenCount int    `json:"openCount"`
}

// UserStats counts known Discord identities.
type UserStats struct {
	TotalUsers int `json:"totalUsers"`
	AdminUsers int `json:"adminUsers"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TicketCounts  TicketCounts   `json:"ticketCounts"`
	CategoryStats []CategoryStat `json:"categoryStats"`
	UserStats     UserStats      `json:"userStats"`
}

// AdminService serves admin-only reads and guild configuration.
type AdminService struct {
	store *repository.Store
}

func NewAdminService(store *repository.Store) *AdminService {
	return &AdminService{store: store}
}

// Stats computes dashboard aggregates from a full scan.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	tickets, err := s.store.Tickets.List(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.store.DiscordUsers.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{CategoryStats: make([]CategoryStat, 0, len(categories))}
	perCategory := make(map[int64]*CategoryStat, len(categories))
	for _, c := range categories {
		stats.CategoryStats = append(stats.CategoryStats, CategoryStat{ID: c.ID, Name: c.Name})
	}
	for i := range stats.CategoryStats {
		perCategory[stats.CategoryStats[i].ID] = &stats.CategoryStats[i]
	}

	for _, t := range tickets {
		stats.TicketCounts.Total++
		switch t.Status {
		case domain.TicketStatusOpen:
			stats.TicketCounts.Open++
		case domain.TicketStatusClosed:
			stats.TicketCounts.Closed++
		case domain.TicketStatusPending:
			stats.TicketCounts.Pending++
		}
		if t.CategoryID == nil {
			continue
		}
		if cs, ok := perCategory[*t.CategoryID]; ok {
			cs.Count++
			if t.Status == domain.TicketStatusOpen {
				cs.OpenCount++
			}
		}
	}

	stats.UserStats.TotalUsers = len(users)
	for _, u := range users {
		if u.Admin() {
			stats.UserStats.AdminUsers++
		}
	}
	return stats, nil
}

func (s *AdminService) ListServers(ctx context.Context) ([]domain.Server, error) {
	return s.store.Servers.List(ctx)
}

func (s *AdminService) GetServer(ctx context.Context, id string) (*domain.Server, error) {
	server, err := s.store.Servers.GetByID(ctx, id)
	return server, mapRepoErr(err, "Server")
}

func (s *AdminService) CreateServer(ctx context.Context, in domain.ServerInput) (*domain.Server, error) {
	in.Name = normalizeText(in.Name)
	fields := map[string]any{}
	if in.ID == "" {
		fields["id"] = "required"
	}
	if in.Name == "" {
		fields["name"] = "required"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("Invalid server data", fields)
	}
	server, err := s.store.Servers.Create(ctx, in)
	return server, mapRepoErr(err, "Server")
}

func (s *AdminService) UpdateServer(ctx context.Context, id string, patch domain.ServerPatch) (*domain.Server, error) {
	if patch.Name.Set {
		if patch.Name.Value = normalizeText(patch.Name.Value); patch.Name.Value == "" {
			return nil, apperrors.NewValidationError("Invalid server data", map[string]any{"name": "must not be empty"})
		}
	}
	server, err := s.store.Servers.Update(ctx, id, patch)
	return server, mapRepoErr(err, "Server")
}

func (s *AdminService) GetBotSettings(ctx context.Context, serverID string) (*domain.BotSettings, error) {
	settings, err := s.store.BotSettings.GetByServerID(ctx, serverID)
	return settings, mapRepoErr(err, "Bot settings")
}

func (s *AdminService) CreateBotSettings(ctx context.Context, in domain.BotSettingsInput) (*domain.BotSettings, error) {
	if in.ServerID == "" {
		return nil, apperrors.NewValidationError("Invalid bot settings data", map[string]any{"serverId": "required"})
	}
	settings, err := s.store.BotSettings.Create(ctx, in)
	return settings, mapRepoErr(err, "Bot settings")
}

func (s *AdminService) UpdateBotSettings(ctx context.Context, serverID string, patch domain.BotSettingsPatch) (*domain.BotSettings, error) {
	settings, err := s.store.BotSettings.Update(ctx, serverID, patch)
	return settings, mapRepoErr(err, "Bot settings")
}
