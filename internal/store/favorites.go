package store

// FavoritesMap maps a user id to that user's favorited event ids, in the
// order they were added. Methods copy on write.
type FavoritesMap map[string][]string

func (m FavoritesMap) Get(userID string) []string {
	ids := m[userID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func (m FavoritesMap) Contains(userID, eventID string) bool {
	for _, id := range m[userID] {
		if id == eventID {
			return true
		}
	}
	return false
}

func (m FavoritesMap) Toggle(userID, eventID string) FavoritesMap {
	return m.Set(userID, eventID, !m.Contains(userID, eventID))
}

func (m FavoritesMap) Set(userID, eventID string, favorite bool) FavoritesMap {
	current := m[userID]
	next := make([]string, 0, len(current)+1)
	for _, id := range current {
		if id != eventID {
			next = append(next, id)
		}
	}
	if favorite {
		next = append(next, eventID)
	}

	out := m.clone()
	out[userID] = next
	return out
}

// Replace overwrites the user's set. Duplicate ids are dropped.
func (m FavoritesMap) Replace(userID string, ids []string) FavoritesMap {
	seen := make(map[string]struct{}, len(ids))
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}

	out := m.clone()
	out[userID] = next
	return out
}

func (m FavoritesMap) Remove(userID string) FavoritesMap {
	if _, ok := m[userID]; !ok {
		return m
	}
	out := m.clone()
	delete(out, userID)
	return out
}

func (m FavoritesMap) clone() FavoritesMap {
	out := make(FavoritesMap, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
