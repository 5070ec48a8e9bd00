package dto

type RoundResponse struct {
	DriverID   string  `json:"driver_id"`
	Duration   float64 `json:"duration"`
	Distance   float64 `json:"distance"`
	FinishedAt float64 `json:"finished_at"`
}

type ListRoundsResponse struct {
	Rounds []RoundResponse `json:"rounds"`
}

type LoadEventResponse struct {
	Tick float64 `json:"tick"`
	Kind string  `json:"kind"`
	From string  `json:"from,omitempty"`
	To   string  `json:"to,omitempty"`
}

type LoadResponse struct {
	LoadID        string              `json:"load_id"`
	Ward          string              `json:"ward"`
	Depot         string              `json:"depot"`
	Status        string              `json:"status"`
	Priority      int                 `json:"priority"`
	Vulnerability int                 `json:"vulnerability"`
	History       []LoadEventResponse `json:"history"`
}

type ListLoadsResponse struct {
	Loads []LoadResponse `json:"loads"`
}

type WardVisitResponse struct {
	Ward   string `json:"ward"`
	Visits int    `json:"visits"`
}

type ListVisitsResponse struct {
	Visits []WardVisitResponse `json:"visits"`
}
