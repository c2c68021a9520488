// Package web embeds the dashboard page and its stylesheet.
package web

import "embed"

// TemplatesFS embeds HTML templates for server-side rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet. The page works without scripts.
//
//go:embed static/*
var StaticFS embed.FS
