package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// LogTee copies every log line to all of its outputs. A failing output does not
// stop the others, its error is returned along with the rest.
type LogTee struct {
	outputs []io.Writer
}

func NewLogTee(outputs ...io.Writer) *LogTee {
	tee := &LogTee{}
	for _, o := range outputs {
		if o != nil {
			tee.outputs = append(tee.outputs, o)
		}
	}
	return tee
}

func (t *LogTee) Outputs() int {
	return len(t.outputs)
}

// Write reports the whole line as written when at least one output took all of it.
func (t *LogTee) Write(p []byte) (int, error) {
	var err error
	delivered := false
	for _, o := range t.outputs {
		n, werr := o.Write(p)
		if werr == nil && n < len(p) {
			werr = io.ErrShortWrite
		}
		if werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		delivered = true
	}

	if !delivered {
		return 0, err
	}
	return len(p), err
}
