package model

// Hand is the set of dealt cards a player has not yet placed or discarded.
// Only its owner may read it.
type Hand struct {
	Room  RoomCode `json:"room"`
	UID   PlayerID `json:"uid"`
	Cards []Card   `json:"cards"`
}

// NewHand creates an empty hand
func NewHand(room RoomCode, uid PlayerID) *Hand {
	return &Hand{Room: room, UID: uid}
}

// Contains reports whether the hand holds a card
func (h *Hand) Contains(c Card) bool {
	return ContainsCard(h.Cards, c)
}

// Remove takes a card out of the hand
func (h *Hand) Remove(c Card) bool {
	var ok bool
	h.Cards, ok = RemoveCard(h.Cards, c)
	return ok
}

// Clear drops every card in the hand
func (h *Hand) Clear() {
	h.Cards = nil
}

// Clone returns a deep copy
func (h *Hand) Clone() *Hand {
	return &Hand{Room: h.Room, UID: h.UID, Cards: cloneCards(h.Cards)}
}

// Deck holds a player's remaining undealt cards. Never exposed to clients.
type Deck struct {
	Room  RoomCode `json:"room"`
	UID   PlayerID `json:"uid"`
	Cards []Card   `json:"cards"`
}

// NewDeck creates a deck from already shuffled cards
func NewDeck(room RoomCode, uid PlayerID, cards []Card) *Deck {
	return &Deck{Room: room, UID: uid, Cards: cards}
}

// Draw removes up to n cards from the top of the deck
func (d *Deck) Draw(n int) []Card {
	if n > len(d.Cards) {
		n = len(d.Cards)
	}
	drawn := cloneCards(d.Cards[:n])
	d.Cards = d.Cards[n:]
	return drawn
}

// Clone returns a deep copy
func (d *Deck) Clone() *Deck {
	return &Deck{Room: d.Room, UID: d.UID, Cards: cloneCards(d.Cards)}
}
