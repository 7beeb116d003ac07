package vcard

import (
	"fmt"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("vcard")

// Warning describes malformed input that the reader skipped or repaired
type Warning struct {
	Line    int    `json:"line"` // 1-based line number in the unfolded input
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}
