package relay

import "errors"

var (
	// ErrInvalidRoomID means the supplied room identifier was empty or blank.
	ErrInvalidRoomID = errors.New("invalid room id")

	// ErrRoomAlreadyExists means an explicit-id create collided with a live room.
	ErrRoomAlreadyExists = errors.New("room already exists")

	// ErrRoomNotFound means no live room matches the identifier.
	ErrRoomNotFound = errors.New("room does not exist")
)
