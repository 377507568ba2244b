package models

type GuessRequest struct {
	Guess int `json:"guess" binding:"required,min=1,max=6"`
}

type PotResponse struct {
	PotSats int64 `json:"pot_sats"`
}
