package storage

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrSearchNotFound = errors.New("search not found")
)
