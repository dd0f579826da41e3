// Package output writes a compiled bundle to disk.
package output

import (
	"io"
	"os"
	"path/filepath"

	"github.com/milk9111/tilebake/common"
	"github.com/sirupsen/logrus"
)

// File is one output file. It is either a Copy or a Data.
type File interface {
	Dest() string
}

// Copy copies Src to Path byte for byte.
type Copy struct {
	Src  string
	Path string
}

func (c Copy) Dest() string { return c.Path }

// Data writes Bytes to Path.
type Data struct {
	Path  string
	Bytes []byte
}

func (d Data) Dest() string { return d.Path }

// Bundle is the ordered set of files a compilation produces. Dest paths are
// relative to the output directory.
type Bundle struct {
	Files []File
}

func (b *Bundle) Add(f File) {
	b.Files = append(b.Files, f)
}

// Dests lists every destination path in order.
func (b *Bundle) Dests() []string {
	out := make([]string, len(b.Files))
	for i, f := range b.Files {
		out[i] = f.Dest()
	}
	return out
}

// Write creates dir and every file of the bundle under it. The first
// failure aborts with an Io error.
func (b *Bundle) Write(dir string, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, f := range b.Files {
		dest := filepath.Join(dir, filepath.FromSlash(f.Dest()))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return common.Wrap(common.KindIo, filepath.Dir(dest), err)
		}
		switch f := f.(type) {
		case Copy:
			if err := copyFile(f.Src, dest); err != nil {
				return err
			}
		case Data:
			if err := os.WriteFile(dest, f.Bytes, 0o644); err != nil {
				return common.Wrap(common.KindIo, dest, err)
			}
		default:
			return common.Errorf(common.KindIo, dest, "output: unknown file type %T", f)
		}
		log.WithField("file", dest).Debug("output: wrote")
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return common.Wrap(common.KindIo, src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return common.Wrap(common.KindIo, dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return common.Wrap(common.KindIo, dest, err)
	}
	if err := out.Close(); err != nil {
		return common.Wrap(common.KindIo, dest, err)
	}
	return nil
}
