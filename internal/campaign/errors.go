package campaign

import "errors"

// Sentinel errors for the campaign orchestrator.
var (
	ErrNotFound     = errors.New("campaign not found")
	ErrNoRecipients = errors.New("no recipients matched the campaign criteria")
	ErrInProgress   = errors.New("a send for this campaign intent is already in progress")
	ErrNoTemplate   = errors.New("template id is required")
)
