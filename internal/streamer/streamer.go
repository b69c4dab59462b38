// Package streamer performs one file copy or one file re-hash, streaming
// every chunk through both the destination write and the hasher so the two
// always observe the identical byte sequence in a single pass.
package streamer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/syncopasoft/hashcopy/internal/hasher"
	"github.com/syncopasoft/hashcopy/internal/progress"
)

// chunkSize is the implementation-chosen read buffer; its exact value is
// not observable by callers.
const chunkSize = 256 * 1024

// Result carries the outcome of a successful copy or verify pass.
type Result struct {
	DigestHex string
	Bytes     int64
}

// CopyFile copies source to dest, hashing every chunk as it is written.
// On any I/O failure the partial destination is left in place, per the
// File Streamer contract — callers never see this function delete dest.
func CopyFile(ctx context.Context, source, dest string, onProgress func(progress.Event)) (Result, error) {
	in, err := os.Open(source)
	if err != nil {
		return Result{}, fmt.Errorf("open source %s: %w", source, err)
	}
	defer in.Close()

	total := int64(-1)
	if info, statErr := in.Stat(); statErr == nil {
		total = info.Size()
	}

	out, err := os.Create(dest)
	if err != nil {
		return Result{}, fmt.Errorf("create dest %s: %w", dest, err)
	}

	h := hasher.New()
	buf := make([]byte, chunkSize)
	var written int64
	throttle := progress.NewThrottle()

	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			return Result{}, err
		}
		n, readErr := in.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if werr := writeFull(out, chunk); werr != nil {
				out.Close()
				return Result{}, fmt.Errorf("write dest %s: %w", dest, werr)
			}
			h.Update(chunk)
			written += int64(n)
			if onProgress != nil && throttle.Allow() {
				onProgress(progress.FileProgress(source, written, total))
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			out.Close()
			return Result{}, fmt.Errorf("read source %s: %w", source, readErr)
		}
	}

	if err := out.Close(); err != nil {
		return Result{}, fmt.Errorf("close dest %s: %w", dest, err)
	}

	return Result{DigestHex: h.Finalize(), Bytes: written}, nil
}

// VerifyFile re-hashes path and returns the digest without writing
// anything. Callers compare the result against an expected digest
// themselves (case-insensitively).
func VerifyFile(ctx context.Context, path string, onProgress func(progress.Event)) (Result, error) {
	in, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	total := int64(-1)
	if info, statErr := in.Stat(); statErr == nil {
		total = info.Size()
	}

	h := hasher.New()
	buf := make([]byte, chunkSize)
	var read int64
	throttle := progress.NewThrottle()

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		n, readErr := in.Read(buf)
		if n > 0 {
			h.Update(buf[:n])
			read += int64(n)
			if onProgress != nil && throttle.Allow() {
				onProgress(progress.FileProgress(path, read, total))
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return Result{}, fmt.Errorf("read %s: %w", path, readErr)
		}
	}

	return Result{DigestHex: h.Finalize(), Bytes: read}, nil
}

// writeFull writes chunk to w in full, retrying on short writes, failing
// the task if a write returns neither progress nor an error.
func writeFull(w io.Writer, chunk []byte) error {
	for len(chunk) > 0 {
		n, err := w.Write(chunk)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		chunk = chunk[n:]
	}
	return nil
}
