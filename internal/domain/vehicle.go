package domain

type Direction string

const (
	DirectionLeft     Direction = "left"
	DirectionRight    Direction = "right"
	DirectionStraight Direction = "straight"
)

// VehicleState is the simulated car. Speed is only ever reset to zero.
type VehicleState struct {
	Direction    Direction `json:"direction"`
	Speed        float64   `json:"speed"`
	MusicPlaying bool      `json:"music_playing"`
	ACOn         bool      `json:"ac_on"`
}

func InitialVehicleState() VehicleState {
	return VehicleState{Direction: DirectionStraight}
}
