package main

import (
	"fmt"
	"math"
)

// TMatchStatus is a bracket match's lifecycle state
type TMatchStatus string

const (
	TMatchPending    TMatchStatus = "pending"
	TMatchInProgress TMatchStatus = "in_progress"
	TMatchCompleted  TMatchStatus = "completed"
)

// TournamentMatch is one bracket match. Player slots hold user ids; 0
// means empty. A bye is created already completed with the sole
// participant as winner.
type TournamentMatch struct {
	ID      string       `json:"id"`
	Round   int          `json:"round"`
	Number  int          `json:"number"` // 1-based within the round
	Player1 int64        `json:"player1"`
	Player2 int64        `json:"player2"`
	Winner  int64        `json:"winner"`
	Status  TMatchStatus `json:"status"`
}

// Bye reports whether this match was auto-completed for lack of an opponent
func (m *TournamentMatch) Bye() bool {
	return m.Player1 == 0 || m.Player2 == 0
}

// Bracket is the pairing contract a tournament type implements.
// SingleElimination is the shipped variant; other types plug in here.
type Bracket interface {
	// TotalRounds returns the number of rounds for n participants
	TotalRounds(n int) int
	// PairRound pairs an ordered player list into the given round's
	// matches, handling an odd leftover per the bracket's rules
	PairRound(round int, players []int64) []*TournamentMatch
}

// SingleElimination pairs consecutive entries; an unpaired trailing player
// receives a bye and advances without playing.
type SingleElimination struct{}

func (SingleElimination) TotalRounds(n int) int {
	if n < 2 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(n))))
}

func (SingleElimination) PairRound(round int, players []int64) []*TournamentMatch {
	matches := make([]*TournamentMatch, 0, (len(players)+1)/2)
	number := 1
	for i := 0; i+1 < len(players); i += 2 {
		matches = append(matches, &TournamentMatch{
			ID:      GenerateUUID(),
			Round:   round,
			Number:  number,
			Player1: players[i],
			Player2: players[i+1],
			Status:  TMatchPending,
		})
		number++
	}
	if len(players)%2 == 1 {
		lone := players[len(players)-1]
		matches = append(matches, &TournamentMatch{
			ID:      GenerateUUID(),
			Round:   round,
			Number:  number,
			Player1: lone,
			Winner:  lone,
			Status:  TMatchCompleted,
		})
	}
	return matches
}

// BracketMatchView is one rendered bracket cell; placeholder cells stand
// in for future matches whose participants are still undecided.
type BracketMatchView struct {
	ID          string `json:"id,omitempty"`
	Round       int    `json:"round"`
	Number      int    `json:"number"`
	Player1     string `json:"player1"`
	Player2     string `json:"player2"`
	Winner      string `json:"winner,omitempty"`
	Status      string `json:"status"`
	RoomID      string `json:"roomId,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// BracketView is a read-only projection of the full bracket, including
// not-yet-created rounds. Never persisted.
type BracketView struct {
	TournamentID string               `json:"tournamentId"`
	Name         string               `json:"name"`
	Status       string               `json:"status"`
	CurrentRound int                  `json:"currentRound"`
	TotalRounds  int                  `json:"totalRounds"`
	Rounds       [][]BracketMatchView `json:"rounds"`
}

// projectRounds renders existing matches and extends the bracket with
// placeholder rounds down to the final, labelling future slots with the
// parent match whose winner feeds them.
func projectRounds(matches []*TournamentMatch, totalRounds int, name func(int64) string) [][]BracketMatchView {
	byRound := make(map[int][]*TournamentMatch)
	lastRound := 0
	for _, m := range matches {
		byRound[m.Round] = append(byRound[m.Round], m)
		if m.Round > lastRound {
			lastRound = m.Round
		}
	}

	var rounds [][]BracketMatchView
	for r := 1; r <= lastRound; r++ {
		row := make([]BracketMatchView, 0, len(byRound[r]))
		for _, m := range byRound[r] {
			v := BracketMatchView{
				ID:      m.ID,
				Round:   m.Round,
				Number:  m.Number,
				Player1: name(m.Player1),
				Player2: name(m.Player2),
				Status:  string(m.Status),
			}
			if m.Winner != 0 {
				v.Winner = name(m.Winner)
			}
			row = append(row, v)
		}
		rounds = append(rounds, row)
	}

	// Future rounds: each one halves the previous (odd counts carry a bye)
	prev := len(byRound[lastRound])
	prevRound := lastRound
	for r := lastRound + 1; r <= totalRounds; r++ {
		count := (prev + 1) / 2
		row := make([]BracketMatchView, 0, count)
		for n := 1; n <= count; n++ {
			v := BracketMatchView{
				Round:       r,
				Number:      n,
				Player1:     fmt.Sprintf("Winner of R%d M%d", prevRound, 2*n-1),
				Status:      string(TMatchPending),
				Placeholder: true,
			}
			if 2*n <= prev {
				v.Player2 = fmt.Sprintf("Winner of R%d M%d", prevRound, 2*n)
			}
			row = append(row, v)
		}
		rounds = append(rounds, row)
		prev = count
		prevRound = r
	}
	return rounds
}
