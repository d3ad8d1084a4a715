package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// issuedAt recovers the creation time embedded in a "<prefix>-<ULID>"
// transaction id, so offline instructions need no stored state.
func issuedAt(transactionID string) (time.Time, error) {
	idx := strings.LastIndexByte(transactionID, '-')
	if idx < 0 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownTransaction, transactionID)
	}
	id, err := ulid.ParseStrict(transactionID[idx+1:])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownTransaction, transactionID)
	}
	return ulid.Time(id.Time()).UTC(), nil
}
