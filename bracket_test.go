package main

import "testing"

func TestSingleEliminationTotalRounds(t *testing.T) {
	se := SingleElimination{}
	cases := []struct{ players, rounds int }{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4}, {16, 4}, {32, 5},
	}
	for _, c := range cases {
		if got := se.TotalRounds(c.players); got != c.rounds {
			t.Errorf("TotalRounds(%d) = %d, want %d", c.players, got, c.rounds)
		}
	}
}

func TestPairRoundEven(t *testing.T) {
	se := SingleElimination{}
	matches := se.PairRound(1, []int64{10, 20, 30, 40})

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Player1 != 10 || matches[0].Player2 != 20 {
		t.Errorf("match 1 pairing wrong: %+v", matches[0])
	}
	if matches[1].Player1 != 30 || matches[1].Player2 != 40 {
		t.Errorf("match 2 pairing wrong: %+v", matches[1])
	}
	for i, m := range matches {
		if m.Status != TMatchPending {
			t.Errorf("match %d should be pending", i)
		}
		if m.Number != i+1 || m.Round != 1 {
			t.Errorf("match %d numbering wrong: %+v", i, m)
		}
		if m.Bye() {
			t.Errorf("match %d wrongly flagged as bye", i)
		}
	}
}

func TestPairRoundOddBye(t *testing.T) {
	se := SingleElimination{}
	matches := se.PairRound(2, []int64{10, 20, 30})

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	bye := matches[1]
	if !bye.Bye() {
		t.Fatal("trailing lone player should get a bye")
	}
	if bye.Status != TMatchCompleted || bye.Winner != 30 {
		t.Errorf("bye should be completed with the lone player winning: %+v", bye)
	}
	if bye.Round != 2 {
		t.Errorf("bye round wrong: %d", bye.Round)
	}
}

func TestProjectRoundsPlaceholders(t *testing.T) {
	se := SingleElimination{}
	matches := se.PairRound(1, []int64{10, 20, 30, 40, 50})
	name := func(id int64) string {
		if id == 0 {
			return ""
		}
		return "P" + string(rune('0'+id/10))
	}

	rounds := projectRounds(matches, se.TotalRounds(5), name)
	if len(rounds) != 3 {
		t.Fatalf("expected 3 projected rounds, got %d", len(rounds))
	}
	if len(rounds[0]) != 3 {
		t.Errorf("round 1 should show 3 matches, got %d", len(rounds[0]))
	}
	for r := 1; r < len(rounds); r++ {
		for _, v := range rounds[r] {
			if !v.Placeholder {
				t.Errorf("round %d cell should be a placeholder: %+v", r+1, v)
			}
		}
	}
	if rounds[1][0].Player1 != "Winner of R1 M1" {
		t.Errorf("placeholder label wrong: %q", rounds[1][0].Player1)
	}
	if len(rounds[2]) != 1 {
		t.Errorf("final should be a single match, got %d", len(rounds[2]))
	}
}
