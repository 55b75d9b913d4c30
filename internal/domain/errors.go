package domain

import "errors"

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrItemAlreadyExists = errors.New("item already exists")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrHoldNotFound      = errors.New("hold not found")
	ErrNotHoldOwner      = errors.New("hold belongs to another holder")
	ErrHoldExpired       = errors.New("hold expired")
	ErrHoldReleased      = errors.New("hold already released")
	ErrDuplicateHold     = errors.New("holder already has an active hold")
	ErrInvalidItemType   = errors.New("invalid item type")
	ErrInvalidCapacity   = errors.New("invalid capacity")
	ErrItemNameRequired  = errors.New("item name required")
	ErrHolderRequired    = errors.New("holder id required")
	ErrInvalidID         = errors.New("invalid id")
)
