package entity

// User is the only aggregate of the users domain.
// ID is assigned by the store on insert and never changes afterwards.
type User struct {
	ID    int64
	Name  string
	Email string
	Role  string
}
