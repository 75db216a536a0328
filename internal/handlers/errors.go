package handlers

import "errors"

var (
	errMissingOrganization = errors.New("organization_id is required to start a conversation")
	errEmptyTurn           = errors.New("a turn needs a message or an event")
)
