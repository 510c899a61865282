package commands

import (
	"context"
	"math/rand/v2"

	"github.com/grl-racing/grlbot/gateway"
)

func defaultRoll() int { return rand.IntN(6) }

// handleRoulette plays one round of Russian roulette. Survival is
// private; losing is announced to the whole channel.
func (h *Handlers) handleRoulette(ctx context.Context, ev *gateway.Event) error {
	mention := ev.Interaction.User.Mention()
	if h.rollDie() != 0 {
		return ev.Responder.Respond(ctx, gateway.Reply{
			Content:   mention + " survived the Russian roulette! *Click*",
			Ephemeral: true,
		})
	}
	return ev.Responder.Respond(ctx, gateway.Reply{
		Content: mention + " didn't survive the Russian roulette! 💥",
	})
}
