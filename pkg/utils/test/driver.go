package testutils

import (
	"context"
	"errors"

	"github.com/papercomputeco/chatrelay/pkg/storage"
)

// ErrMockStorage is returned by FailingDriver for every call.
var ErrMockStorage = errors.New("mock storage failure")

// FailingDriver is a storage.Driver whose every operation fails.
type FailingDriver struct{}

func (FailingDriver) Put(context.Context, *storage.Transcript) error {
	return ErrMockStorage
}

func (FailingDriver) Get(context.Context, string) (*storage.Transcript, error) {
	return nil, ErrMockStorage
}

func (FailingDriver) List(context.Context, int) ([]*storage.Transcript, error) {
	return nil, ErrMockStorage
}

func (FailingDriver) Close() error {
	return nil
}
