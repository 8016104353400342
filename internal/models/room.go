package models

// RoomSnapshot is the presence of one room as exposed over the API
type RoomSnapshot struct {
	ID    string   `json:"id"`
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// RoomListResponse is returned by the operator room listing
type RoomListResponse struct {
	Rooms       []RoomSnapshot `json:"rooms"`
	Connections int            `json:"connections"`
}

// TunnelResponse reports the public URL of the local tunnel
type TunnelResponse struct {
	PublicURL string `json:"public_url"`
}
