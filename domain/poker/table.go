package poker

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rchasman/dominion-maker-sub001/decision"
	"github.com/rchasman/dominion-maker-sub001/domain/deck"
	"github.com/rchasman/dominion-maker-sub001/ledger"
	"github.com/rchasman/dominion-maker-sub001/move"
)

// TableConfig describes a table before the first hand.
type TableConfig struct {
	Players       []string
	StartingStack uint
	Ante          uint
	MinBet        uint
	MaxDiscards   int
	DrawStyle     DrawStyle
	MaxHands      int // 0 plays until one player holds every chip
}

// Validate checks the table limits.
func (c TableConfig) Validate() error {
	if len(c.Players) < 2 || len(c.Players) > 8 {
		return fmt.Errorf("a table needs 2 to 8 players, got %d", len(c.Players))
	}
	if c.StartingStack == 0 {
		return fmt.Errorf("starting stack must be positive")
	}
	if c.MinBet == 0 {
		return fmt.Errorf("minimum bet must be positive")
	}
	if c.MaxDiscards < 1 || c.MaxDiscards > HandSize {
		return fmt.Errorf("max discards must be between 1 and %d", HandSize)
	}
	switch c.DrawStyle {
	case DrawBatch, DrawPerItem:
	default:
		return fmt.Errorf("unknown draw style %q", c.DrawStyle)
	}
	return nil
}

type TableOption func(*Table)

// WithSeed makes every shuffle reproducible.
func WithSeed(seed int64) TableOption {
	return func(t *Table) {
		t.newDeck = func(hand int) *deck.Deck { return deck.NewSeeded(seed + int64(hand)) }
	}
}

// WithLogger sets the table logger.
func WithLogger(log *slog.Logger) TableOption {
	return func(t *Table) { t.log = log }
}

// WithIDs replaces the decision and hand id generator.
func WithIDs(next func() string) TableOption {
	return func(t *Table) { t.ids = next }
}

// Table is the authoritative five-card draw rule engine. Commands are
// validated against the session, applied, and appended to the ledger. All
// methods are safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	session *Session
	cfg     TableConfig
	ledger  *ledger.Blockchain
	newDeck func(hand int) *deck.Deck
	ids     func() string
	log     *slog.Logger
}

// NewTable seats the players. Call NewHand to deal.
func NewTable(cfg TableConfig, opts ...TableOption) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		cfg:     cfg,
		newDeck: func(int) *deck.Deck { return deck.NewRandom() },
		ids:     uuid.NewString,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}

	s := &Session{
		Dealer:      -1,
		CurrentTurn: -1,
		Phase:       Complete,
		Rules: Rules{
			Ante:        cfg.Ante,
			MinBet:      cfg.MinBet,
			MaxDiscards: cfg.MaxDiscards,
			DrawStyle:   cfg.DrawStyle,
		},
		ids: t.ids,
	}
	for i, name := range cfg.Players {
		s.Players = append(s.Players, Player{Name: name, Id: i, Stack: cfg.StartingStack})
	}
	t.session = s

	bc, err := ledger.NewBlockchain(cfg)
	if err != nil {
		return nil, err
	}
	t.ledger = bc
	return t, nil
}

// NewHand moves the button and deals the next hand.
func (t *Table) NewHand() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session
	if s.Phase != Complete {
		return fmt.Errorf("hand %d still in progress", s.HandNo)
	}
	if t.gameOver() {
		return fmt.Errorf("game over")
	}

	n := len(s.Players)
	for i := 1; i <= n; i++ {
		next := ((s.Dealer+i)%n + n) % n
		if s.Players[next].Stack > 0 {
			s.Dealer = next
			break
		}
	}
	s.HandNo++
	s.HandID = t.ids()
	if err := s.deal(t.newDeck(s.HandNo)); err != nil {
		return fmt.Errorf("deal hand %d: %w", s.HandNo, err)
	}
	if _, err := t.ledger.Append("deal", s.Dealer, "", map[string]any{"hand_id": s.HandID, "hand_no": s.HandNo}); err != nil {
		return err
	}
	t.log.Debug("hand dealt", "hand", s.HandNo, "dealer", s.Dealer, "phase", s.Phase)
	t.logIfComplete()
	return nil
}

// Dispatch validates cmd for actor and applies it.
func (t *Table) Dispatch(cmd PokerAction, actor int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session
	if cmd.PlayerID != actor {
		return fmt.Errorf("command for player %d dispatched by %d", cmd.PlayerID, actor)
	}
	if s.Phase == Complete {
		return fmt.Errorf("no hand in progress")
	}
	if actor < 0 || actor >= len(s.Players) {
		return fmt.Errorf("player %d not at table", actor)
	}
	if actor != s.CurrentTurn {
		return fmt.Errorf("not player's turn: current turn %d, player %d", s.CurrentTurn, actor)
	}
	if cmd.DecisionID != "" && cmd.DecisionID != s.DecisionID {
		return fmt.Errorf("stale decision: expected %s, got %s", s.DecisionID, cmd.DecisionID)
	}
	if err := checkPokerLogic(cmd, s, actor); err != nil {
		return err
	}

	decisionID := s.DecisionID
	if err := s.applyAction(cmd, actor); err != nil {
		return err
	}
	if _, err := t.ledger.Append(string(cmd.Type), actor, decisionID, cmd); err != nil {
		return err
	}
	t.log.Debug("command applied", "player", actor, "type", cmd.Type, "amount", cmd.Amount, "card", cmd.Card, "phase", s.Phase)
	t.logIfComplete()
	return nil
}

func (t *Table) logIfComplete() {
	s := t.session
	if s.Phase == Complete {
		t.log.Info("hand complete", "hand", s.HandNo, "winnings", s.Winnings)
	}
}

// LegalMoves lists the moves actor may make now. It is empty when the table
// is not waiting on actor.
func (t *Table) LegalMoves(actor int) []move.Legal {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.waitingOn(actor) {
		return nil
	}
	return t.session.legalMoves(actor)
}

// View returns the table as actor sees it.
func (t *Table) View(actor int) View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.view(actor)
}

// CurrentDecision returns the prompt the table waits on from actor.
func (t *Table) CurrentDecision(actor int) (decision.Decision, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.waitingOn(actor) {
		return decision.Decision{}, false
	}
	s := t.session
	p := s.Players[actor]
	if s.Phase.Betting() {
		prompt := fmt.Sprintf("%s betting, %d to call", s.Phase, s.toCall(actor))
		return decision.Decision{ID: s.DecisionID, Category: decision.CategoryAtomic, Prompt: prompt}, true
	}

	if s.Rules.DrawStyle == DrawPerItem {
		return decision.Decision{
			ID:         s.DecisionID,
			Category:   decision.CategoryResolveEach,
			Prompt:     "keep or discard each card",
			Items:      Codes(p.Hand),
			Min:        0,
			SubActions: []string{SubKeep, SubDiscard},
			Start:      p.DrawCursor,
		}, true
	}
	var items []string
	for pos, c := range p.Hand {
		if !p.discarded(pos) {
			items = append(items, c.Code())
		}
	}
	left := s.Rules.MaxDiscards - len(p.Discards)
	return decision.Decision{
		ID:       s.DecisionID,
		Category: decision.CategoryChooseCards,
		Prompt:   fmt.Sprintf("choose up to %d cards to discard", left),
		Items:    items,
		Min:      0,
		Max:      left,
	}, true
}

// DefaultMove is the fallback for actor: stand pat during the draw, otherwise
// check when free and fold when not. It is always legal when the table waits
// on actor.
func (t *Table) DefaultMove(actor int) move.Move {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session
	if s.Phase == Draw {
		return move.Skip{}
	}
	if actor >= 0 && actor < len(s.Players) && s.toCall(actor) == 0 {
		return move.Check{}
	}
	return move.Fold{}
}

// CurrentPlayer returns the seat the table waits on.
func (t *Table) CurrentPlayer() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session
	if s.Phase == Complete || s.CurrentTurn < 0 {
		return -1, false
	}
	return s.CurrentTurn, true
}

// HandOver reports whether the current hand is finished.
func (t *Table) HandOver() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Phase == Complete
}

// GameOver reports whether no further hand can be dealt.
func (t *Table) GameOver() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Phase == Complete && t.gameOver()
}

func (t *Table) gameOver() bool {
	s := t.session
	if t.cfg.MaxHands > 0 && s.HandNo >= t.cfg.MaxHands {
		return true
	}
	withChips := 0
	for _, p := range s.Players {
		if p.Stack > 0 {
			withChips++
		}
	}
	return withChips <= 1
}

// Winnings returns what each seat won in the last completed hand.
func (t *Table) Winnings() map[int]uint {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int]uint, len(t.session.Winnings))
	for k, v := range t.session.Winnings {
		out[k] = v
	}
	return out
}

// Seats returns the public state of every seat.
func (t *Table) Seats() []SeatView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.view(-1).Seats
}

// Ledger returns the command log of the table.
func (t *Table) Ledger() *ledger.Blockchain {
	return t.ledger
}

func (t *Table) waitingOn(actor int) bool {
	s := t.session
	return s.Phase != Complete && actor >= 0 && actor == s.CurrentTurn
}
