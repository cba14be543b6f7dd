package uid

import "github.com/google/uuid"

// UUID produces correlation ids. v7 keeps them sortable by creation time.
type UUID struct{}

func NewUUID() *UUID { return &UUID{} }

// Generate never fails; a v4 id is used if the v7 source errors.
func (*UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
