package models

import (
	"fmt"
	"strings"
	"time"
)

// Choice is a rock-paper-scissors hand
type Choice string

const (
	ChoiceRock     Choice = "rock"
	ChoicePaper    Choice = "paper"
	ChoiceScissors Choice = "scissors"
)

// AllChoices lists every valid hand
var AllChoices = []Choice{ChoiceRock, ChoicePaper, ChoiceScissors}

// ParseChoice normalises s into a Choice
func ParseChoice(s string) (Choice, error) {
	c := Choice(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid choice %q", s)
	}
	return c, nil
}

// IsValid reports whether c is rock, paper or scissors
func (c Choice) IsValid() bool {
	return c == ChoiceRock || c == ChoicePaper || c == ChoiceScissors
}

// Beats reports whether c wins against other
func (c Choice) Beats(other Choice) bool {
	switch c {
	case ChoiceRock:
		return other == ChoiceScissors
	case ChoiceScissors:
		return other == ChoicePaper
	case ChoicePaper:
		return other == ChoiceRock
	}
	return false
}

// Outcome of comparing both players' hands
type Outcome string

const (
	OutcomeDraw        Outcome = "draw"
	OutcomePlayer1Wins Outcome = "player1"
	OutcomePlayer2Wins Outcome = "player2"
)

// Resolve compares two hands with standard precedence
func Resolve(p1, p2 Choice) Outcome {
	switch {
	case p1 == p2:
		return OutcomeDraw
	case p1.Beats(p2):
		return OutcomePlayer1Wins
	default:
		return OutcomePlayer2Wins
	}
}

// MatchStatus represents the state of a match
type MatchStatus string

const (
	MatchStatusChoosing  MatchStatus = "choosing"
	MatchStatusDraw      MatchStatus = "draw"
	MatchStatusResolved  MatchStatus = "resolved"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// ActiveMatchStatuses are the statuses the staleness sweep looks at
var ActiveMatchStatuses = []MatchStatus{MatchStatusChoosing, MatchStatusDraw}

// MatchSource records which intake path produced the match
type MatchSource string

const (
	MatchSourceBet         MatchSource = "bet"
	MatchSourceMatchmaking MatchSource = "matchmaking"
)

// Player is one side of a match
type Player struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Choice      *Choice `json:"choice"`
}

// HasChosen reports whether the player submitted a hand this round
func (p *Player) HasChosen() bool {
	return p.Choice != nil
}

// Match is the live 1v1 contest. Once it exists it is the only source of truth
// for the two stakes.
type Match struct {
	ID                string      `json:"id"`
	Player1           Player      `json:"player1"`
	Player2           Player      `json:"player2"`
	BetAmount         int64       `json:"betAmount"`
	Status            MatchStatus `json:"status"`
	WinnerID          *string     `json:"winner"`
	Round             int         `json:"round"`
	Source            MatchSource `json:"source"`
	ChoosingStartedAt time.Time   `json:"choosingStartedAt"`
	DrawnAt           *time.Time  `json:"drawnAt,omitempty"`
	ResolvedAt        *time.Time  `json:"resolvedAt,omitempty"`
	CancelledAt       *time.Time  `json:"cancelledAt,omitempty"`
	CancelledBy       *string     `json:"cancelledBy,omitempty"`
	CancelReason      *string     `json:"cancelReason,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// NewMatch pairs two already-debited players
func NewMatch(id string, p1, p2 Player, stake int64, source MatchSource, now time.Time) *Match {
	p1.Choice = nil
	p2.Choice = nil
	return &Match{
		ID:                id,
		Player1:           p1,
		Player2:           p2,
		BetAmount:         stake,
		Status:            MatchStatusChoosing,
		Round:             1,
		Source:            source,
		ChoosingStartedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsTerminal reports whether the match was resolved or cancelled
func (m *Match) IsTerminal() bool {
	return m.Status == MatchStatusResolved || m.Status == MatchStatusCancelled
}

// IsActive reports whether the match still holds both stakes
func (m *Match) IsActive() bool {
	return m.Status == MatchStatusChoosing || m.Status == MatchStatusDraw
}

// IsParticipant checks if a user plays in the match
func (m *Match) IsParticipant(userID string) bool {
	return m.Player1.UserID == userID || m.Player2.UserID == userID
}

// PlayerFor returns the caller's side and the opponent's side, or nils for a non-participant
func (m *Match) PlayerFor(userID string) (self *Player, opponent *Player) {
	switch userID {
	case m.Player1.UserID:
		return &m.Player1, &m.Player2
	case m.Player2.UserID:
		return &m.Player2, &m.Player1
	}
	return nil, nil
}

// PlayerIDs returns both participants
func (m *Match) PlayerIDs() []string {
	return []string{m.Player1.UserID, m.Player2.UserID}
}

// LastActivity is the later of choosingStartedAt and createdAt
func (m *Match) LastActivity() time.Time {
	if m.ChoosingStartedAt.After(m.CreatedAt) {
		return m.ChoosingStartedAt
	}
	return m.CreatedAt
}

// IsStale reports whether the match has been idle for at least threshold
func (m *Match) IsStale(now time.Time, threshold time.Duration) bool {
	return m.IsActive() && now.Sub(m.LastActivity()) >= threshold
}

// DrawResetDue reports whether a drawn round has waited long enough to be reset
func (m *Match) DrawResetDue(now time.Time, delay time.Duration) bool {
	if m.Status != MatchStatusDraw {
		return false
	}
	if m.DrawnAt == nil {
		return true
	}
	return now.Sub(*m.DrawnAt) >= delay
}

// ResetRound clears both hands after a draw and reopens choosing
func (m *Match) ResetRound(now time.Time) {
	m.Player1.Choice = nil
	m.Player2.Choice = nil
	m.Status = MatchStatusChoosing
	m.DrawnAt = nil
	m.ChoosingStartedAt = now
}

// ApplyOutcome moves a match whose two hands are known into draw or resolved
func (m *Match) ApplyOutcome(outcome Outcome, now time.Time) {
	switch outcome {
	case OutcomeDraw:
		m.Status = MatchStatusDraw
		m.Round++
		m.DrawnAt = &now
	case OutcomePlayer1Wins:
		m.resolve(m.Player1.UserID, now)
	case OutcomePlayer2Wins:
		m.resolve(m.Player2.UserID, now)
	}
}

func (m *Match) resolve(winnerID string, now time.Time) {
	m.Status = MatchStatusResolved
	m.WinnerID = &winnerID
	m.ResolvedAt = &now
}

// LoserID returns the participant who did not win a resolved match
func (m *Match) LoserID() string {
	if m.WinnerID == nil {
		return ""
	}
	if *m.WinnerID == m.Player1.UserID {
		return m.Player2.UserID
	}
	return m.Player1.UserID
}

// ViewFor hides the opponent's hand while the round is still open
func (m *Match) ViewFor(userID string) *Match {
	view := *m
	if m.Status != MatchStatusChoosing {
		return &view
	}
	if view.Player1.UserID != userID {
		view.Player1.Choice = nil
	}
	if view.Player2.UserID != userID {
		view.Player2.Choice = nil
	}
	return &view
}

// ChoiceStatus is what a submission tells the caller
type ChoiceStatus string

const (
	ChoiceStatusWaitingForOpponent ChoiceStatus = "waiting_for_opponent"
	ChoiceStatusDraw               ChoiceStatus = "draw"
	ChoiceStatusResolved           ChoiceStatus = "resolved"
	ChoiceStatusCancelled          ChoiceStatus = "cancelled"
)

// ChoiceResult is the response to a choice submission or timeout
type ChoiceResult struct {
	MatchID  string       `json:"gameId"`
	Status   ChoiceStatus `json:"status"`
	Round    int          `json:"round"`
	WinnerID *string      `json:"winner,omitempty"`
	Payout   int64        `json:"payout,omitempty"`
}

// ResultFor summarises the match state as a choice result
func ResultFor(m *Match) *ChoiceResult {
	result := &ChoiceResult{MatchID: m.ID, Round: m.Round, WinnerID: m.WinnerID}
	switch m.Status {
	case MatchStatusDraw:
		result.Status = ChoiceStatusDraw
	case MatchStatusResolved:
		result.Status = ChoiceStatusResolved
		result.Payout = m.BetAmount * 2
	case MatchStatusCancelled:
		result.Status = ChoiceStatusCancelled
	default:
		result.Status = ChoiceStatusWaitingForOpponent
	}
	return result
}
