package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
	_ "time/tzdata" // America/Sao_Paulo без системной базы часовых поясов
)

const (
	prizeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	prizeSuffix   = 4

	timestampLayout = "02/01/2006 15:04:05"
	saoPauloZone    = "America/Sao_Paulo"
)

// SaoPaulo возвращает часовой пояс акции; при ошибке - фиксированный UTC-3
func SaoPaulo() *time.Location {
	loc, err := time.LoadLocation(saoPauloZone)
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// PrizeCode генерирует код вида CS<год>WIN<4 символа base36>
func PrizeCode(now time.Time) string {
	suffix := make([]byte, prizeSuffix)
	max := big.NewInt(int64(len(prizeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// запасной вариант - никогда не должно происходить
			n = big.NewInt(now.UnixNano() % int64(len(prizeAlphabet)))
		}
		suffix[i] = prizeAlphabet[n.Int64()]
	}
	return fmt.Sprintf("CS%dWIN%s", now.Year(), suffix)
}

// FormatTimestamp форматирует момент заявки как DD/MM/YYYY HH:MM:SS в поясе loc
func FormatTimestamp(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(timestampLayout)
}
