package live

import (
	"fmt"

	"donation-gateway/internal/core/domain"
)

// Surface is the viewer page. Narration runs in the page, so speech is a
// command like any other.
type Surface interface {
	Status(mode Mode) error
	Show(card Card) error
	Clear() error
	Speak(text string) error
	CancelSpeech() error
}

// Card is the render payload for one presented donation.
type Card struct {
	ID      string  `json:"id"`
	Amount  *string `json:"amount,omitempty"`
	Message *string `json:"message,omitempty"`
	Donor   string  `json:"donor,omitempty"`
}

// NewCard renders d according to the viewer's show flags.
func NewCard(d domain.Donation, s Settings) Card {
	c := Card{ID: d.ID.String()}
	if s.ShowAmount {
		amount := d.Amount.String()
		c.Amount = &amount
	}
	if s.ShowMessage && d.HasMessage() {
		msg := *d.Message
		c.Message = &msg
	}
	if d.DonorAddress != nil {
		c.Donor = AbbreviateAddress(*d.DonorAddress)
	}
	return c
}

// AbbreviateAddress shortens an address to its first and last four
// characters.
func AbbreviateAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

// Utterance is the narration text for a donation.
func Utterance(d domain.Donation) string {
	msg := ""
	if d.Message != nil {
		msg = *d.Message
	}
	return fmt.Sprintf("%s SOL donation: %s", d.Amount.String(), msg)
}
