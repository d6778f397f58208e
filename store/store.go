package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/randlist"
)

var (
	ErrNotFound           = errors.New("list not found")
	ErrCorrupted          = errors.New("corrupted list")
	ErrUnknownCompression = errors.New("unknown compression")
)

const (
	listsBucket = "lists"
	metaBucket  = "meta"
)

type Options struct {
	Context     context.Context
	Compression CompressionTag
	BufferSize  int // codec buffer size, randlist.DefaultBufferSize if zero
	Logger      *slog.Logger
	Now         func() time.Time
	Verbose     bool
	IsTesting   bool
	MmapSize    int
}

// Store keeps named lists in serialized form. It is safe for concurrent use.
type Store struct {
	stg         storage
	ser         *randlist.Serializer
	context     context.Context
	compression CompressionTag
	logger      *slog.Logger
	now         func() time.Time
	verbose     bool

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

// Open opens or creates a Bolt-backed store at path.
func Open(path string, o Options) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if o.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 64
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if o.MmapSize != 0 {
		bopt.InitialMmapSize = o.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return newStore(newBoltStorage(bdb), o)
}

// OpenMemory returns a store that keeps everything in memory.
func OpenMemory(o Options) *Store {
	s, err := newStore(newMemStorage(), o)
	if err != nil {
		panic(err)
	}
	return s
}

func newStore(stg storage, o Options) (*Store, error) {
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if !o.Compression.valid() {
		stg.Close()
		return nil, fmt.Errorf("store: %w: %v", ErrUnknownCompression, o.Compression)
	}
	return &Store{
		stg: stg,
		ser: randlist.New(randlist.Options{
			Context:    o.Context,
			BufferSize: o.BufferSize,
			Logger:     o.Logger,
			Verbose:    o.Verbose,
		}),
		context:     o.Context,
		compression: o.Compression,
		logger:      o.Logger,
		now:         o.Now,
		verbose:     o.Verbose,
	}, nil
}

func (s *Store) Close() error {
	return s.stg.Close()
}

func (s *Store) fail(op, name string, err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.LogAttrs(s.context, slog.LevelError, "store: failed", slog.String("op", op), slog.String("list", name), slog.Any("err", err))
	}
	return fmt.Errorf("store: %s %q: %w", op, name, err)
}

// blobWriter feeds serialized bytes into a compressor while hashing and
// counting the uncompressed stream.
type blobWriter struct {
	cw   compressWriter
	hash *xxhash.Digest
	raw  int64
}

func (bw *blobWriter) Write(p []byte) (int, error) {
	bw.hash.Write(p)
	bw.raw += int64(len(p))
	return bw.cw.Write(p)
}

func (bw *blobWriter) Flush() error {
	return bw.cw.Flush()
}

// Put serializes the list starting at head and stores it under name,
// replacing any previous list with that name.
func (s *Store) Put(name string, head *randlist.Node) (Meta, error) {
	if name == "" {
		return Meta{}, s.fail("put", name, errors.New("empty name"))
	}

	var blob bytes.Buffer
	cw, err := newCompressWriter(&blob, s.compression)
	if err != nil {
		return Meta{}, s.fail("put", name, err)
	}
	bw := &blobWriter{cw: cw, hash: xxhash.New()}
	if err := s.ser.Serialize(head, bw); err != nil {
		return Meta{}, s.fail("put", name, err)
	}
	if err := cw.Close(); err != nil {
		return Meta{}, s.fail("put", name, err)
	}

	meta := Meta{
		Length:      head.Len(),
		RawSize:     bw.raw,
		StoredSize:  int64(blob.Len()),
		Compression: s.compression,
		Checksum:    bw.hash.Sum64(),
		SavedAt:     s.now().UTC().Truncate(time.Millisecond),
	}

	err = s.write(func(tx storageTx) error {
		lists, err := tx.CreateBucket(listsBucket)
		if err != nil {
			return err
		}
		metas, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return err
		}
		if err := lists.Put([]byte(name), blob.Bytes()); err != nil {
			return err
		}
		return metas.Put([]byte(name), encodeMeta(&meta))
	})
	if err != nil {
		return Meta{}, s.fail("put", name, err)
	}

	s.WriteCount.Add(1)
	if s.verbose {
		s.logger.LogAttrs(s.context, slog.LevelDebug, "store: put", slog.String("list", name), slog.Int("nodes", meta.Length), slog.Int64("raw", meta.RawSize), slog.Int64("stored", meta.StoredSize), slog.String("compression", meta.Compression.String()))
	}
	return meta, nil
}

// Get loads the list stored under name, verifying its checksum.
func (s *Store) Get(name string) (*randlist.Node, error) {
	var head *randlist.Node
	err := s.read(func(tx storageTx) error {
		meta, err := getMeta(tx, name)
		if err != nil {
			return err
		}
		lists := tx.Bucket(listsBucket)
		if lists == nil {
			return ErrCorrupted
		}
		blob := lists.Get([]byte(name))
		if blob == nil {
			return fmt.Errorf("%w: meta without data", ErrCorrupted)
		}
		head, err = s.decode(blob, &meta)
		return err
	})
	if err != nil {
		return nil, s.fail("get", name, err)
	}

	s.ReadCount.Add(1)
	return head, nil
}

func (s *Store) decode(blob []byte, meta *Meta) (*randlist.Node, error) {
	r, release, err := newDecompressReader(bytes.NewReader(blob), meta.Compression)
	if err != nil {
		return nil, err
	}
	defer release()

	cr := &checkReader{r: r, hash: xxhash.New()}
	head, err := s.ser.Deserialize(cr)
	if err != nil {
		return nil, err
	}

	var extra [1]byte
	n, err := io.ReadFull(cr, extra[:])
	if n != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after %d", ErrCorrupted, cr.n-1)
	} else if err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if cr.n != meta.RawSize {
		return nil, fmt.Errorf("%w: size %d, wanted %d", ErrCorrupted, cr.n, meta.RawSize)
	}
	if sum := cr.hash.Sum64(); sum != meta.Checksum {
		return nil, fmt.Errorf("%w: checksum %016x, wanted %016x", ErrCorrupted, sum, meta.Checksum)
	}
	return head, nil
}

type checkReader struct {
	r    io.Reader
	hash *xxhash.Digest
	n    int64
}

func (cr *checkReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.hash.Write(p[:n])
	cr.n += int64(n)
	return n, err
}

// Meta returns the metadata of the list stored under name.
func (s *Store) Meta(name string) (Meta, error) {
	var meta Meta
	err := s.read(func(tx storageTx) error {
		var err error
		meta, err = getMeta(tx, name)
		return err
	})
	if err != nil {
		return Meta{}, s.fail("meta", name, err)
	}
	return meta, nil
}

func getMeta(tx storageTx, name string) (Meta, error) {
	metas := tx.Bucket(metaBucket)
	if metas == nil {
		return Meta{}, ErrNotFound
	}
	raw := metas.Get([]byte(name))
	if raw == nil {
		return Meta{}, ErrNotFound
	}
	return decodeMeta(raw)
}

// Delete removes the list stored under name.
func (s *Store) Delete(name string) error {
	err := s.write(func(tx storageTx) error {
		metas := tx.Bucket(metaBucket)
		if metas == nil || metas.Get([]byte(name)) == nil {
			return ErrNotFound
		}
		if err := metas.Delete([]byte(name)); err != nil {
			return err
		}
		if lists := tx.Bucket(listsBucket); lists != nil {
			return lists.Delete([]byte(name))
		}
		return nil
	})
	if err != nil {
		return s.fail("delete", name, err)
	}
	s.WriteCount.Add(1)
	return nil
}

// Names returns the names of all stored lists in sorted order.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.read(func(tx storageTx) error {
		metas := tx.Bucket(metaBucket)
		if metas == nil {
			return nil
		}
		names = make([]string, 0, metas.KeyCount())
		c := metas.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("names", "", err)
	}
	return names, nil
}

func (s *Store) read(f func(tx storageTx) error) error {
	tx, err := s.stg.BeginTx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(tx)
}

func (s *Store) write(f func(tx storageTx) error) error {
	tx, err := s.stg.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}
