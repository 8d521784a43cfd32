package domain

import "time"

// Данные победителя, отправляются в хранилище один раз на успешную заявку
type WinnerSubmission struct {
	Name      string `json:"name" db:"name"`
	Phone     string `json:"phone" db:"phone"`
	Email     string `json:"email" db:"email"`
	PrizeCode string `json:"prizeCode" db:"prize_code"`
	Timestamp string `json:"timestamp" db:"timestamp"` // DD/MM/YYYY HH:MM:SS, America/Sao_Paulo
}

// Сохраненная запись победителя
type Winner struct {
	ID         int64  `db:"id" json:"id"`
	Collection string `db:"collection" json:"collection"`
	WinnerSubmission
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Поля формы получения приза
type Field string

const (
	FieldName  Field = "name"
	FieldPhone Field = "phone"
	FieldEmail Field = "email"
)

// Форма в том виде, в каком её прислал игрок
type ClaimForm struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}
