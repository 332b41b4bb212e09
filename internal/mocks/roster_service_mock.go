// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/guttosm/sunday-edge/internal/domain/model"
	"github.com/guttosm/sunday-edge/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockRosterService struct {
	mock.Mock
}

func (m *MockRosterService) Teams(ctx context.Context, refresh bool) ([]model.Team, service.Outcome, error) {
	args := m.Called(ctx, refresh)
	if args.Get(0) == nil {
		return nil, args.Get(1).(service.Outcome), args.Error(2)
	}
	return args.Get(0).([]model.Team), args.Get(1).(service.Outcome), args.Error(2)
}

func (m *MockRosterService) Roster(ctx context.Context, teamID string, refresh bool) (*model.Roster, service.Outcome, error) {
	args := m.Called(ctx, teamID, refresh)
	if args.Get(0) == nil {
		return nil, args.Get(1).(service.Outcome), args.Error(2)
	}
	return args.Get(0).(*model.Roster), args.Get(1).(service.Outcome), args.Error(2)
}

func (m *MockRosterService) SearchPlayers(ctx context.Context, query string, refresh bool) ([]model.Player, service.Outcome, error) {
	args := m.Called(ctx, query, refresh)
	if args.Get(0) == nil {
		return nil, args.Get(1).(service.Outcome), args.Error(2)
	}
	return args.Get(0).([]model.Player), args.Get(1).(service.Outcome), args.Error(2)
}

func (m *MockRosterService) InvalidateTeam(ctx context.Context, teamID string) int {
	args := m.Called(ctx, teamID)
	return args.Int(0)
}

var _ service.RosterService = (*MockRosterService)(nil)
