package domain

// Role is the platform-wide role carried in access tokens.
type Role string

const (
	RoleCustomer        Role = "customer"
	RoleRestaurantOwner Role = "restaurant_owner"
	RoleAdmin           Role = "admin"
)

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor may act on every restaurant.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
