package views

import (
	"github.com/mcdev12/auction-live/go/internal/auction/derive"
)

// DisplayView is the public projector screen. It never sends commands.
type DisplayView struct {
	*mount
}

func NewDisplayView(source Source, opts ...Option) *DisplayView {
	o := buildOptions(opts)
	return &DisplayView{mount: newMount(source, o.hooks)}
}

func (v *DisplayView) Mount() {
	v.attach(nil, nil)
}

func (v *DisplayView) Unmount() {
	v.detach()
}

// Overlay prefers a fresh playerSold announcement over the recorded last sale.
func (v *DisplayView) Overlay() derive.Overlay {
	return v.Facts().DisplayOverlay
}

func (v *DisplayView) TimerCritical() bool {
	return v.Facts().TimerCritical
}
