package async

import (
	"bufio"
	"io"
)

// LineFrom fires once a full line is read from r. It never fires if r ends
// first.
func LineFrom(r io.Reader) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		if _, err := bufio.NewReader(r).ReadBytes('\n'); err == nil {
			close(done)
		}
	}()
	return done
}
