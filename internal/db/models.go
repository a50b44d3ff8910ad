package db

import (
	"time"
)

// User is a registered principal. ID is the stable identity every owned
// resource is bound to; it is assigned at registration and never reused.
// Deletion is soft (DeletedAt set) so a recycled id can never satisfy a
// replayed token.
type User struct {
	ID           string     `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DeletedAt    *time.Time `json:"-" db:"deleted_at"`
}

// PokedexEntry is one catalog record in a user's collection. OwnerID is set
// from the requester's resolved identity at creation and never mutated.
type PokedexEntry struct {
	ID            string     `json:"id" db:"id"`
	OwnerID       string     `json:"-" db:"owner_id"`
	PokemonID     int        `json:"pokemon_id" db:"pokemon_id"`
	PokemonName   string     `json:"pokemon_name" db:"pokemon_name"`
	PokemonSprite string     `json:"pokemon_sprite" db:"pokemon_sprite"`
	Nickname      string     `json:"nickname,omitempty" db:"nickname"`
	Captured      bool       `json:"is_captured" db:"is_captured"`
	CaptureDate   *time.Time `json:"capture_date,omitempty" db:"capture_date"`
	Favorite      bool       `json:"favorite" db:"favorite"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Team is a named roster of up to MaxTeamSize pokemon from the owner's
// collection.
type Team struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"-" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	PokemonIDs  []int     `json:"pokemon_ids" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// MaxTeamSize caps roster length.
const MaxTeamSize = 6
