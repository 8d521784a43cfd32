package domain

// Состояние карты на столе
type CardState string

const (
	CardFaceDown CardState = "face_down"
	CardFaceUp   CardState = "face_up"
	CardMatched  CardState = "matched" // больше не принимает клики
)

// Карта игрового стола. Пару образуют ровно две карты с одинаковым GroupKey.
// GroupKey не сериализуется: клиент узнает лицо карты только при открытии.
type Card struct {
	Index    int       `json:"index"`
	GroupKey string    `json:"-"`
	State    CardState `json:"state"`
	Order    int       `json:"order"` // позиция при отрисовке, может совпадать у нескольких карт
}

// Звуковые сигналы
type Cue string

const (
	CueFlip  Cue = "flip"
	CueMatch Cue = "match"
	CueWin   Cue = "win"
	CueLose  Cue = "lose"
)

// Параметры вспышки конфетти, координаты нормализованы в [0,1]
type Burst struct {
	ParticleCount int     `json:"particle_count"`
	Spread        int     `json:"spread"`
	OriginX       float64 `json:"origin_x"`
	OriginY       float64 `json:"origin_y"`
}

// Конфетти при получении приза
var PrizeBurst = Burst{ParticleCount: 100, Spread: 70, OriginX: 0.5, OriginY: 0.6}
