// Package handler holds the gin handlers of the HTTP API.
package handler

import (
	"drainwatch/backend/internal/complaint"
	"drainwatch/backend/internal/identity"

	"github.com/rs/zerolog"
)

// Handler exposes the identity resolver and the complaint engine over HTTP.
type Handler struct {
	Identity   *identity.Service
	Complaints *complaint.Service
	Log        zerolog.Logger

	// SecureCookies marks the session cookie Secure. Enable behind TLS.
	SecureCookies bool
}

func NewHandler(ids *identity.Service, complaints *complaint.Service, log zerolog.Logger, secureCookies bool) *Handler {
	return &Handler{
		Identity:      ids,
		Complaints:    complaints,
		Log:           log,
		SecureCookies: secureCookies,
	}
}
