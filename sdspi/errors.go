package sdspi

import (
	"errors"
	"fmt"
)

var (
	// ErrBusTimeout reports that a response, data-ready or busy wait
	// exhausted its bounded budget.
	ErrBusTimeout = errors.New("sdspi: bus wait exhausted its budget")

	// ErrIllegalCommand reports the card's illegal-command response bit.
	ErrIllegalCommand = errors.New("sdspi: card rejected command as illegal")

	// ErrNonCompatibleCard reports a card that failed negotiation: not a
	// version-2 SDHC card, or stuck during initialization.
	ErrNonCompatibleCard = errors.New("sdspi: non-compatible card")

	// ErrDataRejected reports a write whose data response token did not
	// carry the accepted pattern.
	ErrDataRejected = errors.New("sdspi: card rejected written data")

	// ErrDataRead reports an error token where a start-block token was
	// expected.
	ErrDataRead = errors.New("sdspi: card returned a data error token")

	// errCheckPattern reports a CMD8 echo that does not match the voltage
	// and check-pattern argument.
	errCheckPattern = errors.New("sdspi: CMD8 voltage/check pattern mismatch")
)

// commandError wraps the raw R1 status of a failed command.
func commandError(r1 byte) error {
	if r1&r1IllegalCommand != 0 {
		return ErrIllegalCommand
	}
	return fmt.Errorf("sdspi: command failed, R1=%#02x", r1)
}
