package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// followInterval is how often a followed log file is polled for new data.
const followInterval = 100 * time.Millisecond

// TailLog copies a log file to w. When n > 0 only the last n lines are
// written. With follow it keeps polling for appended data until ctx is done.
func TailLog(ctx context.Context, w io.Writer, path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n > 0 {
		if err := tailSeek(file, n); err != nil {
			return fmt.Errorf("seek to tail position: %w", err)
		}
	}

	if _, err := io.Copy(w, file); err != nil {
		return err
	}
	if !follow {
		return nil
	}
	return tailFollow(ctx, w, file)
}

// tailSeek positions file at the start of its last n lines. A trailing
// newline does not count as an extra line.
func tailSeek(file *os.File, n int) error {
	const chunkSize = 4096

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	size := stat.Size()
	if size == 0 {
		return nil
	}

	buf := make([]byte, chunkSize)
	end := size
	newlines := 0
	first := true
	for end > 0 {
		start := end - chunkSize
		if start < 0 {
			start = 0
		}
		chunk := buf[:end-start]
		if _, err := file.ReadAt(chunk, start); err != nil && err != io.EOF {
			return err
		}

		if first && chunk[len(chunk)-1] == '\n' {
			chunk = chunk[:len(chunk)-1]
		}
		first = false

		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i] != '\n' {
				continue
			}
			newlines++
			if newlines == n {
				_, err := file.Seek(start+int64(i)+1, io.SeekStart)
				return err
			}
		}
		end = start
	}

	_, err = file.Seek(0, io.SeekStart)
	return err
}

// tailFollow copies data appended to file until ctx is cancelled.
func tailFollow(ctx context.Context, w io.Writer, file *os.File) error {
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if _, err := io.Copy(w, file); err != nil {
			return err
		}
	}
}
