package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// ScreenTokenTTL is the time-to-live for screen session tokens (30 days);
	// devices re-register on expiry
	ScreenTokenTTL = 30 * 24 * time.Hour
)

// Fleet defaults
const (
	// DefaultHeartbeatWindow is the maximum gap between heartbeats before a
	// screen is considered disconnected
	DefaultHeartbeatWindow = 5 * time.Minute

	// DefaultMaxConnections is the fleet-wide concurrent connection budget
	DefaultMaxConnections = 8000

	// DefaultConnectivitySweepInterval drives the stale-screen expiry sweep
	DefaultConnectivitySweepInterval = 30 * time.Second

	// DefaultCampaignSweepInterval drives the time-based campaign transitions
	DefaultCampaignSweepInterval = time.Minute

	// DefaultContentDurationSeconds is the display slot for contents that do
	// not declare a duration
	DefaultContentDurationSeconds = 10

	// MaxEventPollWait bounds how long a long-poll on the event feed may block
	MaxEventPollWait = 30 * time.Second
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
