package email

import "github.com/dukerupert/atelier/internal/domain"

// ErrNoRecipient is returned for a message with no To address.
var ErrNoRecipient = domain.Invalid("email.send", "email has no recipient")

func invalidAddress(field string, err error) error {
	return domain.WrapError(err, domain.EINVALID, "email.send", "invalid "+field+" address")
}

func deliveryError(err error) error {
	return domain.External(err, "email.send", "failed to deliver email")
}
