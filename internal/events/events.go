package events

import (
	"savings-gateway/internal/interfaces"
	"savings-gateway/internal/logger"
	"savings-gateway/internal/models"
)

// LogEmitter logs every action event and forwards it to a wrapped emitter,
// when one is configured.
type LogEmitter struct {
	WrappedEmitter interfaces.ActionEmitter
}

func (l *LogEmitter) EmitAction(event models.ActionEvent) error {
	log := logger.GetLogger().Info().
		Str("actionId", event.ActionID).
		Str("kind", event.Kind.String()).
		Str("account", event.Account.Hex()).
		Str("status", event.Status).
		Strs("txHashes", event.TxHashes).
		Time("timestamp", event.Timestamp)
	if event.Amount != "" {
		log = log.Str("amount", event.Amount)
	}
	if event.Error != "" {
		log = log.Str("error", event.Error)
	}
	log.Msg("Action event")

	if l.WrappedEmitter != nil {
		return l.WrappedEmitter.EmitAction(event)
	}
	return nil
}
