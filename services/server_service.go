package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scrimline/tournament-engine/gameserver"
	"github.com/scrimline/tournament-engine/models"
	"github.com/scrimline/tournament-engine/repositories"
)

type CreateServerInput struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	RconPassword string `json:"rcon_password"`
	Enabled      bool   `json:"enabled"`
}

type ServerService interface {
	CreateServer(ctx context.Context, input CreateServerInput) (*models.Server, error)
	GetServer(ctx context.Context, id int) (*models.Server, error)
	ListServers(ctx context.Context) ([]*models.Server, error)
	// CheckServer дёргает сервер вживую и обновляет его статус.
	CheckServer(ctx context.Context, id int) (*models.Server, error)
}

type serverService struct {
	db         *sql.DB
	serverRepo repositories.ServerRepository
	client     gameserver.Client
	logger     *slog.Logger
}

func NewServerService(db *sql.DB, serverRepo repositories.ServerRepository, client gameserver.Client, logger *slog.Logger) ServerService {
	return &serverService{db: db, serverRepo: serverRepo, client: client, logger: logger}
}

func (s *serverService) CreateServer(ctx context.Context, input CreateServerInput) (*models.Server, error) {
	if input.Name == "" || input.Address == "" || input.RconPassword == "" {
		return nil, fmt.Errorf("%w: name, address and rcon_password are required", ErrValidationFailed)
	}
	server := &models.Server{
		Name:         input.Name,
		Address:      input.Address,
		RconPassword: input.RconPassword,
		Enabled:      input.Enabled,
		Status:       models.ServerIdle,
	}
	if err := s.serverRepo.Create(ctx, s.db, server); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "server registered",
		slog.Int("server_id", server.ID),
		slog.String("address", server.Address))
	return server, nil
}

func (s *serverService) GetServer(ctx context.Context, id int) (*models.Server, error) {
	server, err := s.serverRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrServerNotFound) {
			return nil, ErrServerNotFound
		}
		return nil, err
	}
	return server, nil
}

func (s *serverService) ListServers(ctx context.Context) ([]*models.Server, error) {
	return s.serverRepo.ListEnabled(ctx)
}

func (s *serverService) CheckServer(ctx context.Context, id int) (*models.Server, error) {
	server, err := s.GetServer(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.client.SendCommand(ctx, server, gameserver.StatusQuery()); err != nil {
		if updateErr := s.serverRepo.UpdateStatus(ctx, s.db, server.ID, models.ServerOffline); updateErr != nil {
			return nil, updateErr
		}
		server.Status = models.ServerOffline
		return server, nil
	}
	if server.Status == models.ServerOffline {
		if err := s.serverRepo.UpdateStatus(ctx, s.db, server.ID, models.ServerIdle); err != nil {
			return nil, err
		}
		server.Status = models.ServerIdle
	}
	return server, nil
}
