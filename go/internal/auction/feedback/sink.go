package feedback

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// Sink renders feedback side effects.
type Sink interface {
	Alarm(remaining int)
	Flash(on bool)
	// Toast shows toast, or clears the visible one when toast is nil.
	Toast(toast *Toast)
}

// ConsoleSink rings the terminal bell for alarms and prints toasts.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

func (s *ConsoleSink) Alarm(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\a*** %ds remaining ***\n", remaining)
}

func (s *ConsoleSink) Flash(on bool) {
	log.Debug().Bool("on", on).Msg("Bid flash")
}

func (s *ConsoleSink) Toast(toast *Toast) {
	if toast == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "[%s] %s\n", toast.Kind, toast.Message)
}

// NopSink discards everything. The bidder and display roles have no alarm.
type NopSink struct{}

func (NopSink) Alarm(int)    {}
func (NopSink) Flash(bool)   {}
func (NopSink) Toast(*Toast) {}
