package models

import "encoding/json"

// Chat is a two-party conversation. The server returns either a flat
// partner_* shape or a participants list; both normalize to Participants.
type Chat struct {
	ID           int64  `json:"id"`
	Name         string `json:"name,omitempty"`
	Participants []User `json:"participants"`
}

type wireChat struct {
	ID              int64   `json:"id"`
	ChatID          int64   `json:"chat_id"`
	Name            string  `json:"name"`
	PartnerID       *int64  `json:"partner_id"`
	PartnerUsername *string `json:"partner_username"`
	PartnerEmail    string  `json:"partner_email"`
	Participants    []User  `json:"participants"`
}

func (c *Chat) UnmarshalJSON(data []byte) error {
	var w wireChat
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id := w.ID
	if id == 0 {
		// create responses only carry {"message": ..., "chat_id": ...}
		id = w.ChatID
	}

	chat := Chat{ID: id, Name: w.Name, Participants: w.Participants}
	if w.PartnerID != nil && len(w.Participants) == 0 {
		username := "Unknown"
		if w.PartnerUsername != nil {
			username = *w.PartnerUsername
		}
		chat.Participants = []User{{ID: *w.PartnerID, Username: username, Email: w.PartnerEmail}}
		if chat.Name == "" && w.PartnerUsername != nil {
			chat.Name = *w.PartnerUsername
		}
	}

	*c = chat
	return nil
}

// Partner returns the participant that is not currentUserID. When every
// participant is the current user the first one is returned. It reports
// false when the chat has no participants.
func (c Chat) Partner(currentUserID int64) (User, bool) {
	for _, p := range c.Participants {
		if p.ID != currentUserID {
			return p, true
		}
	}
	if len(c.Participants) > 0 {
		return c.Participants[0], true
	}
	return User{}, false
}

type CreateChatRequest struct {
	RecipientID int64 `json:"recipient_id" validate:"required,gt=0"`
}
