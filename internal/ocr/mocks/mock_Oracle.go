// Package mocks provides test doubles for the ocr package.
package mocks

import (
	"context"

	ocr "github.com/sells-group/estimates-cli/internal/ocr"
	mock "github.com/stretchr/testify/mock"
)

// MockOracle is a mock type for the Oracle interface.
type MockOracle struct {
	mock.Mock
}

// Annotate provides a mock function with given fields: ctx, image
func (_m *MockOracle) Annotate(ctx context.Context, image []byte) (*ocr.Result, error) {
	ret := _m.Called(ctx, image)

	if len(ret) == 0 {
		panic("no return value specified for Annotate")
	}

	var r0 *ocr.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, []byte) (*ocr.Result, error)); ok {
		return rf(ctx, image)
	}
	if rf, ok := ret.Get(0).(func(context.Context, []byte) *ocr.Result); ok {
		r0 = rf(ctx, image)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*ocr.Result)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, []byte) error); ok {
		r1 = rf(ctx, image)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockOracle creates a new instance of MockOracle.
func NewMockOracle(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockOracle {
	m := &MockOracle{}
	m.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
