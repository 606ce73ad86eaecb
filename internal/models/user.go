package models

import "time"

// User is the local record for an identity owned by the external provider.
// SubjectID is the provider's stable key (Clerk user id) and is the only
// join key between the provider and this store; ID is generated locally at
// insert and written back to the provider's public metadata exactly once.
type User struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	SubjectID string    `bson:"subjectId" json:"subjectId"`
	Email     string    `bson:"email" json:"email"`
	Username  string    `bson:"username" json:"username"`
	FirstName string    `bson:"firstName" json:"firstName"`
	LastName  string    `bson:"lastName" json:"lastName"`
	PhotoURL  string    `bson:"photoUrl" json:"photoUrl"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Patch is the replacement field set applied on an update event. The
// synchronizer always supplies the full set derived from the latest
// payload; SubjectID, ID and CreatedAt are never part of a patch.
type Patch struct {
	Email     string `bson:"email" json:"email"`
	Username  string `bson:"username" json:"username"`
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	PhotoURL  string `bson:"photoUrl" json:"photoUrl"`
}
