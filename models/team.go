package models

import "time"

// Team - участник турнира. Вариант swiss для одиночных игроков
// моделируется командой с одним игроком в составе.
type Team struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Tag       string    `json:"tag" db:"tag"`
	Seed      int       `json:"seed" db:"seed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Players []Player `json:"players,omitempty" db:"-"`
}
