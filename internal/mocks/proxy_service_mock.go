// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/guttosm/sunday-edge/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockProxyService struct {
	mock.Mock
}

func (m *MockProxyService) Fetch(ctx context.Context, target string, refresh bool) (*service.ProxyResponse, service.Outcome, error) {
	args := m.Called(ctx, target, refresh)
	if args.Get(0) == nil {
		return nil, args.Get(1).(service.Outcome), args.Error(2)
	}
	return args.Get(0).(*service.ProxyResponse), args.Get(1).(service.Outcome), args.Error(2)
}

var _ service.ProxyService = (*MockProxyService)(nil)
