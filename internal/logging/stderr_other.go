//go:build !unix

package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Capture is a no-op outside unix.
type Capture struct{}

// CaptureStderr is a no-op outside unix.
func CaptureStderr(_ logrus.FieldLogger) (*Capture, error) {
	return &Capture{}, nil
}

// Original returns os.Stderr.
func (c *Capture) Original() io.Writer { return os.Stderr }

// Stop is a no-op outside unix.
func (c *Capture) Stop() {}
