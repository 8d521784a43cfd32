package domain

// Фаза игровой сессии
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInProgress   Phase = "in_progress"
	PhaseWon          Phase = "won"
	PhaseLost         Phase = "lost"
	PhaseClaimPending Phase = "claim_pending"
	PhaseFormOpen     Phase = "form_open"
	PhaseSubmitted    Phase = "submitted"
)

// Terminal сообщает, закончена ли партия (дальше только сброс или получение приза)
func (p Phase) Terminal() bool {
	switch p {
	case PhaseWon, PhaseLost, PhaseClaimPending, PhaseFormOpen, PhaseSubmitted:
		return true
	}
	return false
}

// Причина завершения партии
type OutcomeReason string

const (
	ReasonAllPairsMatched OutcomeReason = "all_pairs_matched"
	ReasonMoveLimit       OutcomeReason = "move_limit"
	ReasonTimeExpired     OutcomeReason = "time_expired"
)

// Итог партии, передается контроллеру сессии
type Outcome struct {
	Won     bool          `json:"won"`
	Reason  OutcomeReason `json:"reason"`
	Message string        `json:"message"`
	Moves   int           `json:"moves"`
	Matched int           `json:"matched"`
	// сколько секунд оставалось на таймере
	TimeLeft int `json:"time_left"`
}
