package usecase

import (
	"errors"

	"npctalk/internal/domain"
)

var ErrInvalidTarget = errors.New("no interaction target is set")

// BuildDialogueRequest pairs a recognized utterance with the identity of the
// person being spoken to.
func BuildDialogueRequest(target *domain.InteractionTarget, utterance string) (domain.DialogueRequest, error) {
	if target == nil {
		return domain.DialogueRequest{}, ErrInvalidTarget
	}
	return domain.DialogueRequest{
		SessionID: target.SessionID,
		Persona:   target.Persona,
		VoiceName: target.VoiceName,
		HasTicket: target.HasTicket,
		UserInput: utterance,
	}, nil
}
