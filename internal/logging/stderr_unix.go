//go:build unix

package logging

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Capture redirects file descriptor 2 into the logger. Audio backends
// (ALSA) write there directly, bypassing os.Stderr.
type Capture struct {
	original *os.File
	r, w     *os.File
	done     chan struct{}
}

// CaptureStderr starts forwarding fd 2 output to log at debug level.
// Loggers writing to stderr must be switched to Original first.
func CaptureStderr(log logrus.FieldLogger) (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	origFd, err := unix.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	if err := unix.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		unix.Close(origFd)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{
		original: os.NewFile(uintptr(origFd), "stderr"),
		r:        r,
		w:        w,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		forward(r, log)
	}()
	return c, nil
}

// Original returns the pre-capture stderr.
func (c *Capture) Original() io.Writer { return c.original }

// Stop restores fd 2.
func (c *Capture) Stop() {
	_ = unix.Dup2(int(c.original.Fd()), int(os.Stderr.Fd()))
	c.w.Close()
	<-c.done
	c.r.Close()
	c.original.Close()
}

func forward(r io.Reader, log logrus.FieldLogger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			log.WithField("source", "stderr").Debug(line)
		}
	}
}
