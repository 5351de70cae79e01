package stream

// Handler receives the lifecycle callbacks of a Session. All callbacks for a
// session run on the session's goroutine, one at a time, in stream order.
//
// After a successful open, exactly one of OnDone or OnError follows, unless
// the session is cancelled first, in which case neither does.
type Handler interface {
	OnOpen()
	OnEvent(payload string)
	OnError(err error)
	OnDone()
}

// HandlerFuncs is a Handler built from optional functions.
type HandlerFuncs struct {
	Open  func()
	Event func(payload string)
	Error func(err error)
	Done  func()
}

func (h HandlerFuncs) OnOpen() {
	if h.Open != nil {
		h.Open()
	}
}

func (h HandlerFuncs) OnEvent(payload string) {
	if h.Event != nil {
		h.Event(payload)
	}
}

func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

func (h HandlerFuncs) OnDone() {
	if h.Done != nil {
		h.Done()
	}
}
