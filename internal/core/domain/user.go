package domain

import "time"

// Roles carried on the wire by the CMO backend. Technician and planner keep
// their original Spanish wire names; the backend never translates them.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleTechnician = "tecnico"
	RolePlanner    = "planificador"
)

// ValidRole reports whether r is one of the known CMO roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleTechnician, RolePlanner:
		return true
	}
	return false
}

// Area is the operational area a user belongs to.
type Area struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
}

// ConnectedUser is one remote actor currently known to be online. It is the
// unit of the presence set; the set never holds two entries with the same ID.
type ConnectedUser struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email,omitempty"`
	Rol    string `json:"rol"`
	Area   *Area  `json:"area,omitempty"`
}

// Account models a credentialed user on the gateway side. The numeric
// PresenceID is what appears as ConnectedUser.ID once the account connects.
type Account struct {
	ID           string    `json:"id"`
	PresenceID   int       `json:"presence_id"`
	Nombre       string    `json:"nombre"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Rol          string    `json:"rol"`
	Area         *Area     `json:"area,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
