package db_models

type Trip struct {
	BaseModel
	Origin      string `gorm:"index"`
	Destination string `gorm:"index"`
	DepartsAt   int64  `gorm:"index"` // unix seconds
	PriceMinor  int64  // per seat, minor currency units
	Currency    string `gorm:"size:3"` // ISO 4217
	SeatsTotal  int
	// SeatsLeft is a capacity cache; it is only mutated inside the
	// transaction that owns the reservation (see TripRepository).
	SeatsLeft int
	IsActive  bool `gorm:"default:true"`
}
