package database

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/a-raghavan/blockchain-consortium/foundation/validate"
)

// ErrMalformed is returned when wire data can't be decoded into a complete
// transaction or block.
var ErrMalformed = errors.New("malformed encoding")

// =============================================================================

// Tx is the transactional information between two parties.
type Tx struct {
	Sender    AccountID `json:"sender"`    // Account the amount is taken from.
	Recipient AccountID `json:"recipient"` // Account receiving the amount, created on first credit.
	Amount    int64     `json:"amount"`    // Validity, not construction, requires this to be non-negative.
}

// NewTx constructs a new transaction. No validation takes place here, a
// transaction that can't be applied is filtered out by batch validation.
func NewTx(sender AccountID, recipient AccountID, amount int64) Tx {
	return Tx{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}
}

// Equals reports if both transactions carry the same sender, recipient
// and amount.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx == otherTx
}

// Compare orders transactions by sender, then recipient, then amount. It
// returns -1, 0 or +1 like the cmp package.
func (tx Tx) Compare(otherTx Tx) int {
	if c := strings.Compare(string(tx.Sender), string(otherTx.Sender)); c != 0 {
		return c
	}
	if c := strings.Compare(string(tx.Recipient), string(otherTx.Recipient)); c != 0 {
		return c
	}
	return cmp.Compare(tx.Amount, otherTx.Amount)
}

// Less reports if this transaction sorts before the other one.
func (tx Tx) Less(otherTx Tx) bool {
	return tx.Compare(otherTx) < 0
}

// String implements the fmt.Stringer interface. This is also the canonical
// form used when a transaction is hashed as part of a block.
func (tx Tx) String() string {
	return fmt.Sprintf("T(%q -> %q: %d)", tx.Sender, tx.Recipient, tx.Amount)
}

// Encode returns the canonical interchange form of the transaction.
func (tx Tx) Encode() ([]byte, error) {
	return json.Marshal(tx)
}

// DecodeTx converts the interchange form back into a transaction.
func DecodeTx(data []byte) (Tx, error) {
	var tx Tx
	if err := json.Unmarshal(data, &tx); err != nil {
		return Tx{}, malformed(err)
	}

	return tx, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. Every field must
// be present, a partially populated transaction is never constructed.
func (tx *Tx) UnmarshalJSON(data []byte) error {
	var txData struct {
		Sender    *AccountID `json:"sender" validate:"required"`
		Recipient *AccountID `json:"recipient" validate:"required"`
		Amount    *int64     `json:"amount" validate:"required"`
	}

	if err := json.Unmarshal(data, &txData); err != nil {
		return malformed(err)
	}

	if err := validate.Check(txData); err != nil {
		return malformed(err)
	}

	*tx = NewTx(*txData.Sender, *txData.Recipient, *txData.Amount)

	return nil
}

// =============================================================================

// malformed marks the error as a decoding failure.
func malformed(err error) error {
	if errors.Is(err, ErrMalformed) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrMalformed, err)
}
