package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the lifecycle event type reported by the identity provider.
type Kind string

const (
	KindUserCreated Kind = "user.created"
	KindUserUpdated Kind = "user.updated"
	KindUserDeleted Kind = "user.deleted"
)

var (
	// ErrMissingSubject means the payload carried no data.id. Without the
	// subject id there is nothing to key the mutation on.
	ErrMissingSubject = errors.New("event payload missing subject id")
	// ErrMissingUsername means a created/updated payload carried a null or
	// absent username. The provider contract requires one; the decoder
	// rejects explicitly instead of defaulting.
	ErrMissingUsername = errors.New("event payload missing username")
)

// Event is a decoded, verified lifecycle event. For unrecognized kinds only
// Kind and SubjectID are populated; Recognized reports false and the event
// is acknowledged without any store mutation.
type Event struct {
	Kind       Kind
	Recognized bool
	SubjectID  string

	// field set for created/updated; absent optional fields decode to ""
	Email     string
	Username  string
	FirstName string
	LastName  string
	PhotoURL  string
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// userData mirrors the provider's user object. Nullable provider fields are
// pointers so "absent" and "empty" can be told apart where it matters
// (username); the rest default to "".
type userData struct {
	ID             string  `json:"id"`
	Username       *string `json:"username"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	ImageURL       string  `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// Decode parses a verified payload into a typed Event. Unknown event types
// are not errors: the caller acknowledges them so the provider stops
// redelivering.
func Decode(payload []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	var data userData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode event data: %w", err)
		}
	}

	ev := &Event{Kind: Kind(env.Type), SubjectID: data.ID}

	switch ev.Kind {
	case KindUserCreated, KindUserUpdated:
		ev.Recognized = true
		if data.ID == "" {
			return nil, ErrMissingSubject
		}
		if data.Username == nil || *data.Username == "" {
			return nil, ErrMissingUsername
		}
		ev.Username = *data.Username
		if len(data.EmailAddresses) > 0 {
			ev.Email = data.EmailAddresses[0].EmailAddress
		}
		if data.FirstName != nil {
			ev.FirstName = *data.FirstName
		}
		if data.LastName != nil {
			ev.LastName = *data.LastName
		}
		ev.PhotoURL = data.ImageURL
	case KindUserDeleted:
		ev.Recognized = true
		if data.ID == "" {
			return nil, ErrMissingSubject
		}
	}

	return ev, nil
}
