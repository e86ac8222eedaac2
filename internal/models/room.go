package models

import "time"

// RoomType enumerates supported room layouts.
type RoomType string

const (
	RoomTypeSingle    RoomType = "SINGLE"
	RoomTypeDouble    RoomType = "DOUBLE"
	RoomTypeTriple    RoomType = "TRIPLE"
	RoomTypeDormitory RoomType = "DORMITORY"
)

// Room stores hostel room information. CurrentOccupancy is owned by the
// occupancy engine: the allocation and application state machines are the
// only writers, always inside their own transactions.
type Room struct {
	ID               string    `db:"id" json:"id"`
	RoomNumber       string    `db:"room_number" json:"room_number"`
	Block            string    `db:"block" json:"block"`
	Floor            int       `db:"floor" json:"floor"`
	RoomType         RoomType  `db:"room_type" json:"room_type"`
	Capacity         int       `db:"capacity" json:"capacity"`
	CurrentOccupancy int       `db:"current_occupancy" json:"current_occupancy"`
	HasBathroom      bool      `db:"has_bathroom" json:"has_bathroom"`
	HasAC            bool      `db:"has_ac" json:"has_ac"`
	IsAvailable      bool      `db:"is_available" json:"is_available"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableBeds returns the number of unclaimed beds.
func (r Room) AvailableBeds() int {
	return r.Capacity - r.CurrentOccupancy
}

// IsFull reports whether the room has no remaining beds.
func (r Room) IsFull() bool {
	return r.CurrentOccupancy >= r.Capacity
}

// RoomDetail is the API representation with derived capacity fields.
type RoomDetail struct {
	Room
	AvailableBeds int  `json:"available_beds"`
	IsFull        bool `json:"is_full"`
}

// NewRoomDetail materialises the derived fields for responses.
func NewRoomDetail(room Room) RoomDetail {
	return RoomDetail{Room: room, AvailableBeds: room.AvailableBeds(), IsFull: room.IsFull()}
}

// RoomFilter encapsulates search parameters for listing rooms.
type RoomFilter struct {
	Search        string
	Block         string
	RoomType      RoomType
	AvailableOnly bool
	Page          int
	PageSize      int
}

// RoomOccupancySummary aggregates per-room occupancy for reports.
type RoomOccupancySummary struct {
	RoomNumber       string   `db:"room_number" json:"room_number"`
	Block            string   `db:"block" json:"block"`
	Floor            int      `db:"floor" json:"floor"`
	RoomType         RoomType `db:"room_type" json:"room_type"`
	Capacity         int      `db:"capacity" json:"capacity"`
	CurrentOccupancy int      `db:"current_occupancy" json:"current_occupancy"`
	IsAvailable      bool     `db:"is_available" json:"is_available"`
}
