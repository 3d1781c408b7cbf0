package application

import "chaos-car/internal/domain"

type Vehicle interface {
	PerformAction(in domain.Intent) string
	Snapshot() domain.VehicleState
	Reset()
}
