// Package receiver rebuilds a file from the base64 text a peer streams
// over one connection.
//
// The wire format has no framing: the whole connection is one file, and
// the peer closing its write side is the only end-of-file marker. Chunk
// boundaries mean nothing, so bytes are buffered until Finish.
package receiver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rudransh-shrivastava/rider-share/internal/events"
	"github.com/rudransh-shrivastava/rider-share/internal/storage"
	"github.com/sirupsen/logrus"
)

var (
	ErrDecode         = errors.New("decode failed")
	ErrWrite          = errors.New("write failed")
	ErrBufferOverflow = errors.New("buffer overflow")
)

type Receiver struct {
	sessionID string
	store     storage.Store
	notifier  events.Notifier
	opts      Options
	logger    *logrus.Logger
	now       func() time.Time

	buf      bytes.Buffer
	errored  bool
	overflow bool
}

func New(sessionID string, store storage.Store, notifier events.Notifier, opts Options, logger *logrus.Logger) *Receiver {
	return &Receiver{
		sessionID: sessionID,
		store:     store,
		notifier:  notifier,
		opts:      opts.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// OnData appends a chunk to the transfer buffer. It returns
// ErrBufferOverflow the first time the configured bound is crossed; the
// buffer is dropped at that point and later chunks are ignored.
func (r *Receiver) OnData(chunk []byte) error {
	if r.overflow {
		return nil
	}

	limit := r.opts.MaxBufferBytes
	if limit > 0 && int64(r.buf.Len()+len(chunk)) > limit {
		r.overflow = true
		r.errored = true
		r.buf = bytes.Buffer{}
		err := fmt.Errorf("%w: more than %d bytes buffered", ErrBufferOverflow, limit)
		r.notifier.Notify(events.Error(events.ErrBufferOverflow, r.sessionID, err))
		return err
	}

	r.buf.Write(chunk)
	return nil
}

// Finish decodes everything buffered and writes it to the store. An empty
// stream produces no file and no event. Decode and write failures are
// reported to the notifier and returned wrapped in ErrDecode or ErrWrite.
func (r *Receiver) Finish(ctx context.Context) (*events.ReceivedFile, error) {
	if r.overflow || r.buf.Len() == 0 {
		return nil, nil
	}

	payload := r.buf.Bytes()
	r.buf = bytes.Buffer{}

	data, err := Decode(payload)
	if err != nil {
		r.errored = true
		err = fmt.Errorf("%w: %w", ErrDecode, err)
		r.notifier.Notify(events.Error(events.ErrDecodeFailed, r.sessionID, nil))
		return nil, err
	}

	path := r.opts.OutputPath(r.sessionID, r.now())
	if err := r.store.Write(ctx, path, data, storage.EncodingRaw); err != nil {
		r.errored = true
		err = fmt.Errorf("%w: %w", ErrWrite, err)
		r.notifier.Notify(events.Error(events.ErrWriteFailed, r.sessionID, err))
		return nil, err
	}

	file := events.ReceivedFile{
		Path:            path,
		SourceSessionID: r.sessionID,
		CompletedAt:     r.now(),
		Size:            int64(len(data)),
		SHA256:          fmt.Sprintf("%x", sha256.Sum256(data)),
	}
	r.logger.WithFields(logrus.Fields{
		"session": r.sessionID,
		"path":    path,
		"bytes":   file.Size,
	}).Debug("Wrote received file")

	r.notifier.Notify(events.FileReceived(file))
	return &file, nil
}

// Abandon drops whatever is buffered without writing it.
func (r *Receiver) Abandon() {
	if r.buf.Len() > 0 {
		r.logger.WithFields(logrus.Fields{
			"session": r.sessionID,
			"bytes":   r.buf.Len(),
		}).Info("Abandoning partial transfer")
	}
	r.buf = bytes.Buffer{}
}

func (r *Receiver) Errored() bool {
	return r.errored
}

func (r *Receiver) Buffered() int {
	return r.buf.Len()
}

// Decode turns base64 text into bytes. Line breaks and other whitespace
// are ignored; padding is optional.
func Decode(text []byte) ([]byte, error) {
	clean := make([]byte, 0, len(text))
	for _, c := range text {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		clean = append(clean, c)
	}

	enc := base64.StdEncoding
	if len(clean)%4 != 0 {
		enc = base64.RawStdEncoding
	}

	out := make([]byte, enc.DecodedLen(len(clean)))
	n, err := enc.Decode(out, clean)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
