package notification

import (
	"time"

	"github.com/ecotracker/fillstate/internal/model"
)

// Recipients filters a tenant's tokens down to the set that should
// receive a push about a full transition at transitionAt.
//
// A token is included iff its LastSeenAt predates the transition: a
// user observed active since the location became full already knows
// through the live channel. Tokens with no heartbeat yet are always
// included. A zero transition time disables suppression and includes
// every token. The result is a set keyed by token value, so a token
// reachable through more than one user appears once.
func Recipients(tokens []*model.PushToken, transitionAt time.Time) []*model.PushToken {
	seen := make(map[string]struct{}, len(tokens))
	recipients := make([]*model.PushToken, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token.Token]; ok {
			continue
		}
		if !transitionAt.IsZero() && token.LastSeenAt != nil && !token.LastSeenAt.Before(transitionAt) {
			continue
		}
		seen[token.Token] = struct{}{}
		recipients = append(recipients, token)
	}
	return recipients
}
