package rtpsource

import (
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
)

// Factory creates interceptors that feed the Tracker of every remote stream
// they see. One Factory serves one peer connection.
type Factory struct {
	mu       sync.Mutex
	trackers map[uint32]*Tracker
	opts     []TrackerOption
}

// NewFactory creates a new Factory. The options apply to every Tracker it
// creates.
func NewFactory(opts ...TrackerOption) *Factory {
	return &Factory{
		trackers: make(map[uint32]*Tracker),
		opts:     opts,
	}
}

// NewInterceptor implements interceptor.Factory.
func (f *Factory) NewInterceptor(_ string) (interceptor.Interceptor, error) {
	return &Interceptor{factory: f}, nil
}

// Tracker returns the Tracker of the stream with the given SSRC, creating it
// when needed.
func (f *Factory) Tracker(ssrc uint32) *Tracker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trackers[ssrc]
	if !ok {
		t = NewTracker(f.opts...)
		f.trackers[ssrc] = t
	}
	return t
}

func (f *Factory) remove(ssrc uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.trackers, ssrc)
}

// Interceptor records the sources of every packet read from remote streams.
type Interceptor struct {
	interceptor.NoOp
	factory *Factory
}

// BindRemoteStream wraps the reader of a remote stream.
func (i *Interceptor) BindRemoteStream(info *interceptor.StreamInfo, reader interceptor.RTPReader) interceptor.RTPReader {
	tracker := i.factory.Tracker(info.SSRC)
	return interceptor.RTPReaderFunc(func(b []byte, a interceptor.Attributes) (int, interceptor.Attributes, error) {
		n, attr, err := reader.Read(b, a)
		if err != nil {
			return n, attr, err
		}
		var h rtp.Header
		if _, err := h.Unmarshal(b[:n]); err == nil {
			tracker.Observe(&h, tracker.now())
		}
		return n, attr, nil
	})
}

// UnbindRemoteStream forgets the Tracker of a finished stream.
func (i *Interceptor) UnbindRemoteStream(info *interceptor.StreamInfo) {
	i.factory.remove(info.SSRC)
}
