package models

// RoomInfo is the REST view of a live room.
type RoomInfo struct {
	ID          string `json:"id"`
	MemberCount int    `json:"memberCount"`
}

// RoomListResponse is the response for listing live rooms.
type RoomListResponse struct {
	Rooms []RoomInfo `json:"rooms"`
}
