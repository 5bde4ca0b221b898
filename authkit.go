package main

import (
	"github.com/clinware/backend/config"
	"github.com/workos/workos-go/v4/pkg/sso"
	"github.com/workos/workos-go/v4/pkg/usermanagement"
)

// AuthkitInit configures the WorkOS clients used by the login flow.
func AuthkitInit(cfg *config.Config) {
	sso.Configure(
		cfg.WorkOSClientId,
		cfg.WorkOSApiKey,
	)

	usermanagement.SetAPIKey(cfg.WorkOSApiKey)
}
