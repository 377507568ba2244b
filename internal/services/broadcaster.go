package services

import "satdice-backend/internal/models"

type Broadcaster interface {
	BroadcastSession(snap *models.SessionSnapshot)
	BroadcastPot(sats int64)
}
