package services

import (
	"context"
	"time"

	"github.com/sbilibin2017/gw-escrow-market/internal/geo"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
)

// TransactionReader loads a single transaction.
type TransactionReader interface {
	GetByID(ctx context.Context, id string) (*models.Transaction, error) // Loads one transaction
}

// ProximityService checks whether buyer and seller are close enough for a handover.
// The result is advisory and never changes the transaction status.
type ProximityService struct {
	txs         TransactionReader
	publisher   EventPublisher
	thresholdKm float64
	now         func() time.Time
}

// NewProximityService creates a new ProximityService with the default threshold in km.
func NewProximityService(txs TransactionReader, publisher EventPublisher, thresholdKm float64) *ProximityService {
	return &ProximityService{
		txs:         txs,
		publisher:   publisher,
		thresholdKm: thresholdKm,
		now:         time.Now,
	}
}

// Verify computes the distance between the parties and records the result in the audit log.
// A non-positive thresholdKm selects the service default.
func (s *ProximityService) Verify(
	ctx context.Context,
	txID, actorID string,
	buyer, seller models.Coordinates,
	thresholdKm float64,
) (models.ProximityResult, error) {
	if !buyer.Valid() || !seller.Valid() {
		return models.ProximityResult{}, ErrInvalidRequest
	}
	if thresholdKm <= 0 {
		thresholdKm = s.thresholdKm
	}

	tx, err := s.txs.GetByID(ctx, txID)
	if err != nil {
		logger.Log.Errorw("failed to load transaction", "transaction_id", txID, "error", err)
		return models.ProximityResult{}, translate(err)
	}
	if !tx.IsParty(actorID) {
		return models.ProximityResult{}, ErrNotAuthorized
	}

	result := models.ProximityResult{
		DistanceKm:  geo.Distance(buyer, seller),
		ThresholdKm: thresholdKm,
		Within:      geo.Within(buyer, seller, thresholdKm),
	}

	if s.publisher != nil {
		ev := models.TransitionEvent{
			Kind:        models.EventKindProximity,
			Transaction: *tx,
			ActorID:     actorID,
			Proximity:   &result,
			OccurredAt:  s.now().UTC(),
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			logger.Log.Errorw("failed to publish proximity event", "transaction_id", txID, "error", err)
		}
	}

	return result, nil
}
