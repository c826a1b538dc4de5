// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"

	"github.com/areaflow/areaflow/pkg/handlers/debuglog"
	"github.com/areaflow/areaflow/pkg/handlers/discord"
	"github.com/areaflow/areaflow/pkg/handlers/gmail"
	"github.com/areaflow/areaflow/pkg/handlers/httprequest"
	"github.com/areaflow/areaflow/pkg/handlers/openai"
	"github.com/areaflow/areaflow/pkg/protocol"
	"github.com/areaflow/areaflow/pkg/registry"
)

// NewRegistry builds the handler registry with all native handlers
// installed.
func NewRegistry(logger *slog.Logger) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	factories := []protocol.HandlerFactory{
		debuglog.NewFactory(),
		httprequest.NewFactory(),
		discord.NewFactory(),
		gmail.NewFactory(),
		openai.NewFactory(),
	}

	for _, factory := range factories {
		if err := reg.Register(factory); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
