package game

import "fmt"

// Тексты интерфейса (pt-BR)
const (
	MsgWin       = "Parabéns! Você venceu!"
	MsgTimeUp    = "O tempo acabou! Você perdeu."
	msgMoveLimit = "Você atingiu o limite de %d jogadas! Você perdeu."
)

// MoveLimitMessage - сообщение о проигрыше по лимиту ходов
func MoveLimitMessage(maxMoves int) string {
	return fmt.Sprintf(msgMoveLimit, maxMoves)
}

// MovesText - счетчик ходов "Jogadas: N/MAX"
func MovesText(moves, maxMoves int) string {
	return fmt.Sprintf("Jogadas: %d/%d", moves, maxMoves)
}

// TimerText - оставшееся время "Tempo: MM:SS"
func TimerText(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("Tempo: %02d:%02d", seconds/60, seconds%60)
}
