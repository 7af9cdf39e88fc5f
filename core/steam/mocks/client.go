package mocks

import (
	"context"
	"net/url"

	"game-sync/core/steam"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of steam.Client
type Client struct {
	mock.Mock
}

func (m *Client) Get(ctx context.Context, path string, params url.Values) (*steam.Response, steam.CallRecord, error) {
	args := m.Called(ctx, path, params)
	var resp *steam.Response
	if r, ok := args.Get(0).(*steam.Response); ok {
		resp = r
	}
	return resp, args.Get(1).(steam.CallRecord), args.Error(2)
}

func (m *Client) Post(ctx context.Context, path string, form url.Values) (*steam.Response, steam.CallRecord, error) {
	args := m.Called(ctx, path, form)
	var resp *steam.Response
	if r, ok := args.Get(0).(*steam.Response); ok {
		resp = r
	}
	return resp, args.Get(1).(steam.CallRecord), args.Error(2)
}
