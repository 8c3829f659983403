package zread

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// storeCodec implements the STORE (method 0) Codec: an identity
// transform that still tracks the running CRC-32 so Flush can honor
// InputSigned.
type storeCodec struct {
	cfg  CodecConfig
	hash uint32
}

func newStoreCodec(cfg CodecConfig) *storeCodec {
	return &storeCodec{cfg: cfg}
}

func (c *storeCodec) Init(ctx context.Context) error { return nil }

func (c *storeCodec) Append(ctx context.Context, chunk []byte) ([]byte, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	c.hash = crc32.Update(c.hash, crc32.IEEETable, chunk)
	out := make([]byte, len(chunk))
	copy(out, chunk)
	return out, nil
}

func (c *storeCodec) Flush(ctx context.Context) (FlushResult, error) {
	if c.cfg.InputSigned && c.hash != c.cfg.InputSignature {
		return FlushResult{}, newReaderError(KindInvalidSignature, ErrInvalidSignature)
	}
	return FlushResult{Signature: c.hash}, nil
}

// deflateCodec implements the DEFLATE (method 8) Codec using
// klauspost/compress/flate.
//
// klauspost/compress/flate, like its stdlib counterpart, is a blocking
// io.Reader: it pulls input on demand rather than accepting it in
// discrete pushed chunks. To adapt it to the chunked Append/Flush
// protocol this reader's pipeline drives, a dedicated goroutine
// runs the inflater against an io.Pipe and drains its output into a
// mutex-guarded buffer; Append feeds the pipe and returns whatever
// output has accumulated so far (possibly none, which the contract
// explicitly allows). The pipeline driver above it stays synchronous.
type deflateCodec struct {
	cfg CodecConfig

	pw *io.PipeWriter

	mu     sync.Mutex
	out    bytes.Buffer
	hash   uint32
	done   chan struct{}
	doneEr error
}

func newDeflateCodec(cfg CodecConfig) *deflateCodec {
	return &deflateCodec{cfg: cfg}
}

func (c *deflateCodec) Init(ctx context.Context) error {
	pr, pw := io.Pipe()
	c.pw = pw
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		fr := flate.NewReader(pr)
		defer fr.Close()

		buf := make([]byte, 64*1024)
		for {
			n, err := fr.Read(buf)
			if n > 0 {
				c.mu.Lock()
				c.hash = crc32.Update(c.hash, crc32.IEEETable, buf[:n])
				c.out.Write(buf[:n])
				c.mu.Unlock()
			}
			if err != nil {
				if err != io.EOF {
					c.doneEr = fmt.Errorf("inflate: %w", err)
				}
				pr.CloseWithError(err)
				return
			}
		}
	}()

	return nil
}

func (c *deflateCodec) Append(ctx context.Context, chunk []byte) ([]byte, error) {
	if len(chunk) > 0 {
		if _, err := c.pw.Write(chunk); err != nil && err != io.ErrClosedPipe {
			return nil, fmt.Errorf("feed inflater: %w", err)
		}
	}
	return c.takeOutput(), nil
}

func (c *deflateCodec) Flush(ctx context.Context) (FlushResult, error) {
	c.pw.Close()
	<-c.done

	out := c.takeOutput()
	if c.doneEr != nil {
		return FlushResult{Data: out}, c.doneEr
	}
	if c.cfg.InputSigned && c.hash != c.cfg.InputSignature {
		return FlushResult{Data: out}, newReaderError(KindInvalidSignature, ErrInvalidSignature)
	}
	return FlushResult{Data: out, Signature: c.hash}, nil
}

func (c *deflateCodec) takeOutput() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out.Len() == 0 {
		return nil
	}
	out := make([]byte, c.out.Len())
	copy(out, c.out.Bytes())
	c.out.Reset()
	return out
}
