package model

// ActiveRoster filters ghost rows left behind by an earlier occupancy of
// the invite code. Input order (join time) is preserved.
func ActiveRoster(epoch string, players []Player) []Player {
	if epoch == "" {
		return nil
	}

	var active []Player
	for _, p := range players {
		if p.Epoch == epoch {
			active = append(active, p)
		}
	}

	return active
}

// PinSelfFirst moves the row matching identity to the front, keeping the
// rest in order. Presentation-only derivation for the "you" slot.
func PinSelfFirst(identity string, players []Player) []Player {
	if identity == "" {
		return players
	}

	for i, p := range players {
		if p.Identity == identity {
			pinned := make([]Player, 0, len(players))
			pinned = append(pinned, players[i])
			pinned = append(pinned, players[:i]...)
			pinned = append(pinned, players[i+1:]...)
			return pinned
		}
	}

	return players
}
