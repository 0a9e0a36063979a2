package model

// Service is a gym service (class, session) clients can be linked to.
// TimeStart and TimeEnd are "HH:MM:SS" strings as stored in TIME columns.
type Service struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

// Position is a staff job position.
type Position struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Duty string `json:"duty"`
}
