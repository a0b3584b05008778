package extract

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// WriteEntry writes content to dest as UTF-8 text, replacing any existing
// file. Invalid UTF-8 is refused with ErrEncoding before anything is written.
func WriteEntry(dest, content string) error {
	if !utf8.ValidString(content) {
		return fmt.Errorf("%w: content is not valid UTF-8", ErrEncoding)
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
