package nlmsg

// Batch packs complete messages back to back into one fixed capacity buffer,
// to be sent with a single sendto. The message under construction is not part
// of Bytes until it is committed by the following Next or by
// FinalizeIfPending. A message that ran out of room is never committed: Next
// drops it and reports false, and the request goes into the next batch.
//
//	batch := NewBatch(SocketBufferSize)
//	for _, req := range reqs {
//		b, ok := batch.Next()
//		if !ok {
//			// flush batch.Bytes(), batch.Reset()
//		}
//		...
//	}
//	batch.FinalizeIfPending()
type Batch struct {
	b    *Builder
	used int
}

func NewBatch(capacity int) *Batch {
	return &Batch{
		b: newFixedBuilder(capacity),
	}
}

// Next commits the pending message and starts a new one with a zeroed header
// right after it; set the header with the Builder setters. It returns false
// when the batch has no room for another header and should be flushed. A
// pending message that failed with NLE_MSGSIZE is dropped first.
func (self *Batch) Next() (*Builder, bool) {
	if self.b.overflow {
		self.DiscardPending()
		return nil, false
	}
	if self.b.Depth() > 0 {
		return nil, false
	}
	self.FinalizeIfPending()
	if self.used+NLMSG_HDRLEN > self.b.limit {
		return nil, false
	}
	if err := self.b.BeginMessage(0, 0); err != nil {
		return nil, false
	}
	return self.b, true
}

// FinalizeIfPending commits the message under construction, if any, and
// reports whether there was one. A message with open nests or one that ran
// out of room is not committed.
func (self *Batch) FinalizeIfPending() bool {
	if self.b.overflow || self.b.msg < self.used || self.b.Len() <= self.used || self.b.Depth() > 0 {
		return false
	}
	self.used = self.b.Len()
	return true
}

// DiscardPending drops the message under construction, typically one that
// failed with NLE_MSGSIZE and has to go into the next batch.
func (self *Batch) DiscardPending() {
	self.b.buf = self.b.buf[:self.used]
	self.b.msg = -1
	self.b.nests = self.b.nests[:0]
	self.b.overflow = false
}

func (self *Batch) IsEmpty() bool {
	return self.used == 0
}

func (self *Batch) Used() int {
	return self.used
}

func (self *Batch) Cap() int {
	return self.b.limit
}

// Bytes holds the committed messages only.
func (self *Batch) Bytes() []byte {
	return self.b.buf[:self.used]
}

func (self *Batch) Reset() {
	self.b.Reset()
	self.used = 0
}
