package engine

import "github.com/lox/pokerforbots/internal/deck"

// ActionRecord is one entry in a hand's action log, per spec.md §4.3
// "every action with its street".
type ActionRecord struct {
	Street  Street `json:"street"`
	Seat    int    `json:"seat"`
	Action  Action `json:"action"`
	Amount  int    `json:"amount"`
	Coerced bool   `json:"coerced"`
	Timeout bool   `json:"timeout"`
}

// PotResult is an awarded pot: its amount, the seats eligible to contest it,
// and how it actually split among the winners.
type PotResult struct {
	Amount   int         `json:"amount"`
	Eligible []int       `json:"eligible"`
	Winners  []int       `json:"winners"`
	Shares   map[int]int `json:"shares"`
}

// ShowdownReveal is one seat's revealed hand at showdown, matching the
// GAME_END wire payload's active_players_hands shape one-to-one (spec.md
// §4.5 table, supplemented onto the structured log per SPEC_FULL.md §4.3).
type ShowdownReveal struct {
	Seat      int         `json:"seat"`
	HoleCards []deck.Card `json:"hole_cards"`
	Category  string      `json:"category"`
}

// HandLog is the structured per-hand record named in spec.md §4.3: seat
// roster, starting stacks, button/SB/BB identities, hole cards dealt, every
// action with its street, community cards as they appear, pot sizes,
// showdown reveals, per-seat deltas, and ending stacks.
type HandLog struct {
	MatchID   string `json:"match_id,omitempty"`
	HandIndex int    `json:"hand_index"`

	SeatRoster    []int       `json:"seat_roster"`
	StartingStack map[int]int `json:"starting_stacks"`
	Button        int         `json:"button"`
	SBSeat        int         `json:"sb_seat"`
	BBSeat        int         `json:"bb_seat"`
	SBAmount      int         `json:"sb_amount"`
	BBAmount      int         `json:"bb_amount"`

	HoleCards map[int][]deck.Card `json:"hole_cards"`
	Community []deck.Card         `json:"community"`

	Actions []ActionRecord `json:"actions"`

	Pots     []PotResult `json:"pots"`
	Uncalled map[int]int `json:"uncalled,omitempty"`

	Showdown      []ShowdownReveal `json:"showdown,omitempty"`
	UncontestedTo int              `json:"uncontested_to,omitempty"`

	Deltas      map[int]int `json:"deltas"`
	EndingStack map[int]int `json:"ending_stacks"`

	// AllScores/ActiveHands mirror the GAME_END wire payload one-to-one
	// (spec.md §4.5 table; supplement from original_source's message.py).
	AllScores   map[int]int      `json:"all_scores"`
	ActiveHands []ShowdownReveal `json:"active_players_hands,omitempty"`

	Fatal string `json:"fatal,omitempty"`
}
