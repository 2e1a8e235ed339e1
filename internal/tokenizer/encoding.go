package tokenizer

import (
	"errors"

	"github.com/pkoukk/tiktoken-go"
)

var errMissingEncoding = errors.New("tiktoken encoding not loaded")

// encodingCounter counts tokens with a tiktoken encoding. Special-token markers that appear in
// repository files are counted as ordinary text.
type encodingCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter encodingCounter) Name() string { return counter.name }

func (counter encodingCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errMissingEncoding
	}
	return len(counter.encoding.EncodeOrdinary(input)), nil
}
