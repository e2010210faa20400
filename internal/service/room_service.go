package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context) ([]models.Room, error)
	FindByCode(ctx context.Context, code string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
}

// roomResolver is what class updates need to point a class at a room code.
type roomResolver interface {
	FindOrCreateRoom(ctx context.Context, actor models.Actor, code string) (*models.Room, error)
}

// RoomService manages room reference data.
type RoomService struct {
	repo   roomRepository
	audit  auditRecorder
	logger *zap.Logger
}

// NewRoomService constructs the room service.
func NewRoomService(repo roomRepository, audit auditRecorder, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, audit: audit, logger: logger}
}

// List returns all rooms.
func (s *RoomService) List(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// FindOrCreateRoom returns the room with the given code, creating an active room of the
// default type when none exists.
func (s *RoomService) FindOrCreateRoom(ctx context.Context, actor models.Actor, code string) (*models.Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room code is required")
	}
	room, err := s.repo.FindByCode(ctx, code)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	room = &models.Room{Code: code, Type: models.DefaultRoomType, Active: true}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	s.logger.Info("room created from class update", zap.String("room_code", code))
	if s.audit != nil {
		s.audit.Record(ctx, actor, models.AuditActionInsert, models.TableRooms, code, nil, room)
	}
	return room, nil
}
