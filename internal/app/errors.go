package service

import "errors"

var (
	// ErrGameNotFound marks operations against an untracked game.
	ErrGameNotFound = errors.New("game not found")

	// ErrGameExists marks a repeated registration for the same game.
	ErrGameExists = errors.New("game already registered")

	// ErrBadTransition marks an illegal game lifecycle move.
	ErrBadTransition = errors.New("illegal game state transition")
)
