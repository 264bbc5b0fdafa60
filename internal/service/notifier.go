package service

import (
	"log"

	"camly/internal/models"
)

// Notifier is the boundary to the notification/messaging collaborators. The
// ledger only emits events; rendering and delivery live elsewhere.
type Notifier interface {
	GiftReceived(gift *models.Gift)
	// PostGiftMessage emits the denormalized transfer summary shown under a post.
	PostGiftMessage(gift *models.Gift)
	RewardGranted(actorID uint, actionID uint, amount int64)
}

// LogNotifier is the default sink when no delivery backend is configured.
type LogNotifier struct{}

func (LogNotifier) GiftReceived(g *models.Gift) {
	log.Printf("[Notify] gift %s: %d coins from user %d to user %d", g.ReceiptID, g.Amount, g.SenderID, g.ReceiverID)
}

func (LogNotifier) PostGiftMessage(g *models.Gift) {
	log.Printf("[Notify] post %s: gift summary for receipt %s", g.ContextID, g.ReceiptID)
}

func (LogNotifier) RewardGranted(actorID, actionID uint, amount int64) {
	log.Printf("[Notify] reward: user %d earned %d coins for action %d", actorID, amount, actionID)
}
