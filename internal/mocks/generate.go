// Package mocks provides mock implementations for testing the admin console.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the ports interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	api := mocks.NewMockSessionAPI(ctrl)
//	api.EXPECT().Me(gomock.Any(), "tok").Return(identity, nil)
package mocks

// Generate mock for SessionAPI interface from internal/ports package.
// This creates MockSessionAPI with methods for all SessionAPI interface methods:
// Login, Me, Logout
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_api_mock.go github.com/target/cms-admin/internal/ports SessionAPI

// Generate mock for TokenBackend interface from internal/ports package.
// This creates MockTokenBackend with methods for all TokenBackend interface methods:
// Name, Load, Store, Remove
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_backend_mock.go github.com/target/cms-admin/internal/ports TokenBackend
