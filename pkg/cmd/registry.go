// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/registry"
)

// NewRegistry returns a registry holding every built-in node type.
func NewRegistry(logger *slog.Logger, evaluator *expression.Evaluator) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(evaluator)

	return reg
}
