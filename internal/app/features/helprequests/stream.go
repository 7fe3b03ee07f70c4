// internal/app/features/helprequests/stream.go
package helprequests

import (
	"encoding/json"
	"net/http"
)

// TrailerStreamError is set as an HTTP trailer when a streamed array was cut
// short. The body is still a well-formed array; a client that sees the trailer
// knows the listing is incomplete.
const TrailerStreamError = "X-Stream-Error"

// arrayWriter writes a JSON array one element at a time, flushing after each
// so clients see rows as they are produced.
type arrayWriter struct {
	w    http.ResponseWriter
	enc  *json.Encoder
	rows int
	open bool
}

func newArrayWriter(w http.ResponseWriter) *arrayWriter {
	return &arrayWriter{w: w, enc: json.NewEncoder(w)}
}

func (a *arrayWriter) started() bool { return a.open }

func (a *arrayWriter) begin() error {
	a.open = true
	a.w.Header().Set("Content-Type", "application/json")
	a.w.Header().Set("Trailer", TrailerStreamError)
	a.w.WriteHeader(http.StatusOK)
	_, err := a.w.Write([]byte("["))
	return err
}

func (a *arrayWriter) write(v any) error {
	if !a.open {
		if err := a.begin(); err != nil {
			return err
		}
	}
	if a.rows > 0 {
		if _, err := a.w.Write([]byte(",")); err != nil {
			return err
		}
	}
	if err := a.enc.Encode(v); err != nil {
		return err
	}
	a.rows++
	if f, ok := a.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// fail closes the array and reports msg in the trailer.
func (a *arrayWriter) fail(msg string) {
	a.close()
	a.w.Header().Set(TrailerStreamError, msg)
}

func (a *arrayWriter) close() {
	if !a.open {
		_ = a.begin()
	}
	_, _ = a.w.Write([]byte("]\n"))
}
