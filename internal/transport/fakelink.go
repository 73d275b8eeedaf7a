package transport

import (
	"bytes"
	"io"
	"time"

	"github.com/daqtools/scopeacq/internal/interfaces"
)

// FakeLink is an in-memory interfaces.Link double for exercising Session
// without a real VISA resource manager. Writes append to a log callers can
// inspect; reads are served from a pre-loaded response queue.
type FakeLink struct {
	Writes  [][]byte
	replies *bytes.Buffer
	closed  bool
	Timeout time.Duration

	// FailReads, if true, makes every Read return io.ErrClosedPipe.
	FailReads bool
}

// NewFakeLink creates a FakeLink whose Read calls will drain the bytes
// passed to QueueReply, in order.
func NewFakeLink() *FakeLink {
	return &FakeLink{replies: &bytes.Buffer{}}
}

// QueueReply appends p to the link's read buffer.
func (f *FakeLink) QueueReply(p []byte) {
	f.replies.Write(p)
}

// QueueReplyString is QueueReply for a string.
func (f *FakeLink) QueueReplyString(s string) {
	f.QueueReply([]byte(s))
}

func (f *FakeLink) Write(p []byte) (int, error) {
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	cp := append([]byte(nil), p...)
	f.Writes = append(f.Writes, cp)
	return len(p), nil
}

func (f *FakeLink) Read(p []byte) (int, error) {
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	if f.FailReads {
		return 0, io.ErrClosedPipe
	}
	if f.replies.Len() == 0 {
		return 0, io.EOF
	}
	return f.replies.Read(p)
}

func (f *FakeLink) SetTimeout(d time.Duration) error {
	f.Timeout = d
	return nil
}

func (f *FakeLink) Close() error {
	f.closed = true
	return nil
}

// LastWrite returns the most recent Write payload as a string, or "" if
// none happened.
func (f *FakeLink) LastWrite() string {
	if len(f.Writes) == 0 {
		return ""
	}
	return string(f.Writes[len(f.Writes)-1])
}

var _ interfaces.Link = (*FakeLink)(nil)

// FakeOpener is an interfaces.LinkOpener double. Open returns a FakeLink
// keyed by resource name (creating one on demand); FindResources returns a
// scripted candidate list per tier.
type FakeOpener struct {
	Links     map[string]*FakeLink
	Resources map[string][]string

	// OpenErr, if set, is returned by Open for every resource name.
	OpenErr error
}

// NewFakeOpener creates an opener with empty link/resource maps.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{
		Links:     make(map[string]*FakeLink),
		Resources: make(map[string][]string),
	}
}

// Open returns the FakeLink registered for resourceName, creating one if
// necessary. A previously-closed link is reopened (closed reset to false,
// its queued replies left intact) rather than handed back still-closed,
// matching a real VISA resource manager's reopen semantics.
func (o *FakeOpener) Open(resourceName string) (interfaces.Link, error) {
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	link, ok := o.Links[resourceName]
	if !ok {
		link = NewFakeLink()
		o.Links[resourceName] = link
	}
	link.closed = false
	return link, nil
}

// FindResources returns the scripted resource list for tier.
func (o *FakeOpener) FindResources(tier string) ([]string, error) {
	return o.Resources[tier], nil
}

var _ interfaces.LinkOpener = (*FakeOpener)(nil)
