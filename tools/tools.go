//go:build tools

// Package tools lists the commands used in the cms-admin dev loop.
// They run through `go run module@version`, so none of them is pinned in go.mod.
package tools

// Admin server with live reload (templates and static files come from disk
// when DEV=true, so only Go edits trigger a rebuild):
//
//	DEV=true go run github.com/air-verse/air@v1.63.0 \
//	  --build.cmd "go build -o ./tmp/cms-admin ./cmd/cms-admin" \
//	  --build.bin ./tmp/cms-admin
//
// Mocks for internal/ports (regenerate after changing an interface there):
//
//	go generate ./internal/mocks
//
// Credential store inspection against a local Redis:
//
//	REDIS_ENABLED=true REDIS_URI=localhost:6379 go run ./cmd/cms-admin-cli tokens --limit 20
