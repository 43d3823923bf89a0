// Package gcsfile adapts a Google Cloud Storage object into an
// io.ReaderAt, so the reader (C8) can query a gs:// path exactly as it
// would a local file. Grounded on the teacher's own direct dependency
// on cloud.google.com/go/storage (go.mod), which no kept teacher file
// exercised; this package gives that dependency a concrete home, per
// SPEC_FULL.md's DOMAIN STACK.
package gcsfile

import (
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// File implements io.ReaderAt and io.Closer against a single GCS
// object, issuing one ranged read per ReadAt call. It does not buffer
// or cache between calls: the reader (C8) already reads in
// block-sized chunks, so a caching layer here would only shadow that
// one.
type File struct {
	ctx    context.Context
	client *storage.Client
	obj    *storage.ObjectHandle
}

// Open parses a gs://bucket/object path and returns a File ready for
// ReadAt calls.
func Open(ctx context.Context, gsPath string) (*File, error) {
	bucket, object, err := splitGSPath(gsPath)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return &File{
		ctx:    ctx,
		client: client,
		obj:    client.Bucket(bucket).Object(object),
	}, nil
}

// splitGSPath splits "gs://bucket/path/to/object" into its bucket and
// object components.
func splitGSPath(gsPath string) (bucket, object string, err error) {
	const prefix = "gs://"
	if !strings.HasPrefix(gsPath, prefix) {
		return "", "", pfx.Err(errNotGSPath)
	}
	rest := gsPath[len(prefix):]
	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return "", "", pfx.Err(errNotGSPath)
	}
	return rest[:i], rest[i+1:], nil
}

var errNotGSPath = errInvalidPath("gcsfile: path must be of the form gs://bucket/object")

type errInvalidPath string

func (e errInvalidPath) Error() string { return string(e) }

// ReadAt issues a ranged read [off, off+len(p)) against the backing
// object. Per io.ReaderAt's contract, a short read at end-of-object is
// reported with a non-nil error.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	r, err := f.obj.NewRangeReader(f.ctx, off, int64(len(p)))
	if err != nil {
		return 0, pfx.Err(err)
	}
	defer r.Close()

	total := 0
	for total < len(p) {
		n, err := r.Read(p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close releases the GCS client.
func (f *File) Close() error {
	return f.client.Close()
}
