// Package cmsadmin provides the embedded admin frontend for production builds.
package cmsadmin

import "embed"

// In dev mode the router reads these directories from disk instead.

//go:embed all:frontend/static
var StaticFS embed.FS

//go:embed all:frontend/templates
var TemplateFS embed.FS
