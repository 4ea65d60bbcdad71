package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/rchasman/dominion-maker-sub001/consensus"
	"github.com/rchasman/dominion-maker-sub001/domain/poker"
	"github.com/rchasman/dominion-maker-sub001/move"
)

func renderBanner() {
	_ = pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("D", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("ominion ", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("M", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("aker", pterm.FgDarkGray.ToStyle()),
	).Render()
}

// eventLine turns the resolver events worth showing live into one line. The
// tallies themselves are rendered once the decision is resolved.
func eventLine(players []string, e consensus.Event) (string, bool) {
	name := fmt.Sprint("seat ", e.Actor)
	if e.Actor >= 0 && e.Actor < len(players) {
		name = players[e.Actor]
	}
	switch e.Kind {
	case consensus.EventDecompositionStart:
		return fmt.Sprintf("%s: decision %s is voted step by step", name, e.DecisionID), true
	case consensus.EventDecompositionEnd:
		return fmt.Sprintf("%s: decision %s done after %d steps", name, e.DecisionID, e.Round), true
	case consensus.EventProviderFailed:
		return fmt.Sprintf("%s: %s failed: %v", name, e.Provider, e.Err), true
	case consensus.EventDispatchFailed:
		return fmt.Sprintf("%s: the table rejected %s: %v", name, e.Move, e.Err), true
	}
	return "", false
}

// progressSink prints eventLine for every event that has one.
func progressSink(players []string) consensus.Sink {
	return consensus.SinkFunc(func(e consensus.Event) {
		if line, ok := eventLine(players, e); ok {
			pterm.Info.Println(line)
		}
	})
}

// tallyRows is the per-provider table of one round, header first.
func tallyRows(rr consensus.RoundResult) [][]string {
	rows := [][]string{{"", "Provider", "Vote", "Rationale", "Time"}}
	committed := ""
	if rr.Move != nil {
		committed = move.Describe(rr.Move)
	}
	for _, v := range rr.Votes {
		mark, vote := "", ""
		switch v.Status {
		case consensus.StatusCompleted:
			vote = move.Describe(v.Move)
			if vote == committed {
				mark = "✔"
			}
		case consensus.StatusFailed:
			vote = pterm.LightRed("failed: ", v.Err)
		case consensus.StatusAborted:
			vote = pterm.Gray("aborted")
		default:
			vote = pterm.Gray(string(v.Status))
		}
		rows = append(rows, []string{mark, v.ProviderID, vote, v.Rationale, v.Duration.Round(time.Millisecond).String()})
	}
	return rows
}

// roundSummary is the one-line outcome of a round.
func roundSummary(name string, rr consensus.RoundResult) string {
	committed := "nothing"
	if rr.Move != nil {
		committed = move.Describe(rr.Move)
	}
	step := ""
	if rr.Index > 0 {
		step = fmt.Sprintf(" (step %d)", rr.Index+1)
	}
	switch rr.Resolution {
	case consensus.ResolvedEarly, consensus.ResolvedExhaustive:
		return fmt.Sprintf("%s%s: %s, %s consensus at %.0f%%", name, step, committed, rr.Resolution, 100*rr.Strength)
	case consensus.ResolvedFallback:
		return fmt.Sprintf("%s%s: %s by fallback (%v)", name, step, committed, rr.Recovered)
	default:
		return fmt.Sprintf("%s%s: %s, %s", name, step, committed, rr.Resolution)
	}
}

func renderResult(name string, res consensus.Result) {
	for _, rr := range res.Rounds {
		if len(rr.Votes) > 0 {
			_ = pterm.DefaultTable.WithHasHeader().WithData(tallyRows(rr)).Render()
		}
		line := roundSummary(name, rr)
		if rr.Resolution == consensus.ResolvedFallback {
			pterm.Warning.Println(line)
		} else {
			pterm.Info.Println(line)
		}
	}
}

// seatRows is the standings table, header first.
func seatRows(seats []poker.SeatView) [][]string {
	rows := [][]string{{"Seat", "Player", "Stack", "State"}}
	for _, s := range seats {
		state := pterm.LightGreen("active")
		switch {
		case s.Out:
			state = pterm.Gray("out")
		case s.Folded:
			state = pterm.LightRed("folded")
		case s.AllIn:
			state = pterm.LightYellow("all-in")
		}
		rows = append(rows, []string{fmt.Sprint(s.Seat), s.Name, fmt.Sprint(s.Stack), state})
	}
	return rows
}

// winnerLines describes the last hand's winnings in seat order.
func winnerLines(seats []poker.SeatView, winnings map[int]uint) []string {
	winners := make([]int, 0, len(winnings))
	for seat := range winnings {
		winners = append(winners, seat)
	}
	slices.Sort(winners)
	lines := make([]string, 0, len(winners))
	for _, seat := range winners {
		name := fmt.Sprint("seat ", seat)
		if seat < len(seats) {
			name = seats[seat].Name
		}
		lines = append(lines, fmt.Sprintf("%s won %d", name, winnings[seat]))
	}
	return lines
}

func renderHandEnd(tbl *poker.Table) {
	seats := tbl.Seats()
	info := ""
	for _, l := range winnerLines(seats, tbl.Winnings()) {
		info += pterm.LightCyan(l) + "\n"
	}
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	pbox.WithTitle(pterm.LightGreen("|SHOWDOWN|")).WithTitleTopCenter().Println(info)
	_ = pterm.DefaultTable.WithHasHeader().WithData(seatRows(seats)).Render()
}
