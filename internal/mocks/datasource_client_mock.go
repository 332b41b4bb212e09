// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/guttosm/sunday-edge/internal/datasource"
	"github.com/guttosm/sunday-edge/internal/domain/model"
	"github.com/stretchr/testify/mock"
)

type MockDatasourceClient struct {
	mock.Mock
}

func (m *MockDatasourceClient) Teams(ctx context.Context) ([]model.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Team), args.Error(1)
}

func (m *MockDatasourceClient) Roster(ctx context.Context, teamID string) (*model.Roster, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Roster), args.Error(1)
}

func (m *MockDatasourceClient) SearchPlayers(ctx context.Context, query string) ([]model.Player, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Player), args.Error(1)
}

func (m *MockDatasourceClient) Health(ctx context.Context) (*datasource.Health, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*datasource.Health), args.Error(1)
}

var _ datasource.Client = (*MockDatasourceClient)(nil)
