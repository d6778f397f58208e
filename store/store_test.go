package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/andreyvit/randlist"
	"github.com/andreyvit/randlist/randlisttest"
)

var testNow = time.Date(2024, 3, 15, 10, 20, 30, 123456789, time.UTC)

func setup(t testing.TB, backend string, comp CompressionTag) *Store {
	t.Helper()
	o := Options{
		Compression: comp,
		BufferSize:  64,
		Now:         func() time.Time { return testNow },
		Verbose:     true,
		IsTesting:   true,
	}
	var s *Store
	switch backend {
	case "mem":
		s = OpenMemory(o)
	case "bolt":
		var err error
		s, err = Open(filepath.Join(t.TempDir(), "lists.db"), o)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
	default:
		panic(backend)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var backends = []string{"mem", "bolt"}

var compressions = []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd}

func TestStore_RoundTrip(t *testing.T) {
	long := strings.Repeat("the quick brown fox jumps over the lazy dog ", 200)
	lists := map[string]*randlist.Node{
		"five":  randlisttest.Build([]string{"1", "2", "3", "4", "5"}, []int{2, 4, 1, 0, 3}),
		"self":  randlisttest.Build([]string{"x"}, []int{0}),
		"long":  randlisttest.Build([]string{long, "é日🙂", long}, []int{2, 0, 1}),
		"cycle": randlisttest.BuildCyclic([]string{"a", "b", "c"}, []int{1, 1, 0}, 0),
		"empty": nil,
	}

	for _, backend := range backends {
		for _, comp := range compressions {
			t.Run(backend+"/"+comp.String(), func(t *testing.T) {
				s := setup(t, backend, comp)
				for name, head := range lists {
					meta, err := s.Put(name, head)
					if err != nil {
						t.Fatalf("Put(%s): %v", name, err)
					}
					if meta.Length != head.Len() || meta.Compression != comp {
						t.Fatalf("Put(%s) meta = %+v, wanted length %d and %v", name, meta, head.Len(), comp)
					}
				}
				for name, head := range lists {
					got, err := s.Get(name)
					if err != nil {
						t.Fatalf("Get(%s): %v", name, err)
					}
					randlisttest.SameTopology(t, got, head)
					randlisttest.Disjoint(t, got, head)
				}
				if s.WriteCount.Load() != uint64(len(lists)) || s.ReadCount.Load() != uint64(len(lists)) {
					t.Fatalf("WriteCount/ReadCount = %d/%d, wanted %d", s.WriteCount.Load(), s.ReadCount.Load(), len(lists))
				}
			})
		}
	}
}

func TestStore_Meta(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			s := setup(t, backend, CompressionZstd)
			head := randlisttest.Build([]string{strings.Repeat("abc", 1000), "b"}, []int{1, 0})
			put, err := s.Put("l", head)
			if err != nil {
				t.Fatal(err)
			}

			got, err := s.Meta("l")
			if err != nil {
				t.Fatal(err)
			}
			if !got.SavedAt.Equal(testNow.Truncate(time.Millisecond)) {
				t.Fatalf("SavedAt = %v, wanted %v", got.SavedAt, testNow.Truncate(time.Millisecond))
			}
			got.SavedAt, put.SavedAt = time.Time{}, time.Time{}
			if !reflect.DeepEqual(got, put) {
				t.Fatalf("Meta = %+v, wanted %+v", got, put)
			}
			if e := int64(4 + 2*20 + 3000 + 1); got.RawSize != e {
				t.Fatalf("RawSize = %d, wanted %d", got.RawSize, e)
			}
			if got.StoredSize >= got.RawSize {
				t.Fatalf("StoredSize = %d, wanted less than RawSize %d", got.StoredSize, got.RawSize)
			}
		})
	}
}

func TestStore_NamesAndDelete(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			s := setup(t, backend, CompressionNone)

			names, err := s.Names()
			if err != nil {
				t.Fatal(err)
			}
			if len(names) != 0 {
				t.Fatalf("Names = %v, wanted none", names)
			}

			head := randlisttest.Build([]string{"a"}, []int{0})
			for _, name := range []string{"c", "a", "b"} {
				if _, err := s.Put(name, head); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := s.Put("a", head); err != nil {
				t.Fatal(err)
			}
			names, err = s.Names()
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
				t.Fatalf("Names = %v, wanted [a b c]", names)
			}

			if err := s.Delete("b"); err != nil {
				t.Fatal(err)
			}
			if err := s.Delete("b"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("second Delete err = %v, wanted ErrNotFound", err)
			}
			if _, err := s.Get("b"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(deleted) err = %v, wanted ErrNotFound", err)
			}
			if _, err := s.Meta("nope"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Meta(missing) err = %v, wanted ErrNotFound", err)
			}
			names, _ = s.Names()
			if !reflect.DeepEqual(names, []string{"a", "c"}) {
				t.Fatalf("Names = %v, wanted [a c]", names)
			}
		})
	}
}

func TestStore_EmptyName(t *testing.T) {
	s := setup(t, "mem", CompressionNone)
	if _, err := s.Put("", nil); err == nil {
		t.Fatalf("Put(\"\") succeeded, wanted error")
	}
}

func TestStore_InvalidList(t *testing.T) {
	s := setup(t, "mem", CompressionLZ4)
	nodes := randlisttest.Nodes([]string{"a", "b"})
	nodes[0].Random = nodes[0]
	_, err := s.Put("bad", nodes[0])
	if !errors.Is(err, randlist.ErrInvalidStructure) {
		t.Fatalf("Put err = %v, wanted ErrInvalidStructure", err)
	}
	if _, err := s.Get("bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get err = %v, wanted ErrNotFound", err)
	}
}

func tamper(t testing.TB, s *Store, name string, f func(blob []byte) []byte) {
	t.Helper()
	err := s.write(func(tx storageTx) error {
		lists := tx.Bucket(listsBucket)
		blob := append([]byte(nil), lists.Get([]byte(name))...)
		return lists.Put([]byte(name), f(blob))
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStore_Corruption(t *testing.T) {
	head := randlisttest.Build([]string{"alpha", "beta", "gamma"}, []int{2, 0, 1})

	tests := []struct {
		name   string
		f      func(blob []byte) []byte
		wanted error
	}{
		{"payload byte flipped", func(blob []byte) []byte {
			blob[len(blob)-1] ^= 0x01
			return blob
		}, ErrCorrupted},
		{"trailing bytes", func(blob []byte) []byte {
			return append(blob, 0)
		}, ErrCorrupted},
		{"truncated", func(blob []byte) []byte {
			return blob[:len(blob)-3]
		}, randlist.ErrTruncated},
		{"missing data", nil, ErrCorrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setup(t, "mem", CompressionNone)
			if _, err := s.Put("l", head); err != nil {
				t.Fatal(err)
			}
			if tt.f == nil {
				err := s.write(func(tx storageTx) error {
					return tx.Bucket(listsBucket).Delete([]byte("l"))
				})
				if err != nil {
					t.Fatal(err)
				}
			} else {
				tamper(t, s, "l", tt.f)
			}
			_, err := s.Get("l")
			if !errors.Is(err, tt.wanted) {
				t.Fatalf("Get err = %v, wanted %v", err, tt.wanted)
			}
		})
	}
}

func TestStore_CompressedCorruption(t *testing.T) {
	for _, comp := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		t.Run(comp.String(), func(t *testing.T) {
			s := setup(t, "mem", comp)
			head := randlisttest.Build([]string{"alpha", "beta"}, []int{1, 0})
			if _, err := s.Put("l", head); err != nil {
				t.Fatal(err)
			}
			tamper(t, s, "l", func(blob []byte) []byte {
				return blob[:len(blob)/2]
			})
			if _, err := s.Get("l"); err == nil {
				t.Fatalf("Get of damaged %v blob succeeded", comp)
			}
		})
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.db")
	head := randlisttest.Build([]string{"1", "2", "3"}, []int{1, 2, 0})

	s, err := Open(path, Options{Compression: CompressionLZ4, IsTesting: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put("l", head); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path, Options{Compression: CompressionZstd, IsTesting: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get("l")
	if err != nil {
		t.Fatal(err)
	}
	randlisttest.SameTopology(t, got, head)
}

func TestStore_UnknownCompression(t *testing.T) {
	_, err := newStore(newMemStorage(), Options{Compression: 7})
	if !errors.Is(err, ErrUnknownCompression) {
		t.Fatalf("err = %v, wanted ErrUnknownCompression", err)
	}
}

func TestCompressionTag(t *testing.T) {
	for _, tag := range compressions {
		got, err := ParseCompressionTag(tag.String())
		if err != nil || got != tag {
			t.Fatalf("ParseCompressionTag(%q) = %v, %v, wanted %v", tag.String(), got, err, tag)
		}
	}
	if got, err := ParseCompressionTag(""); err != nil || got != CompressionNone {
		t.Fatalf("ParseCompressionTag(\"\") = %v, %v, wanted none", got, err)
	}
	if _, err := ParseCompressionTag("gzip"); !errors.Is(err, ErrUnknownCompression) {
		t.Fatalf("ParseCompressionTag(gzip) err = %v, wanted ErrUnknownCompression", err)
	}
	if s := CompressionTag(9).String(); s != "unknown(9)" {
		t.Fatalf("String = %q, wanted unknown(9)", s)
	}
}

func TestMeta_Corrupted(t *testing.T) {
	if _, err := decodeMeta([]byte{0xc1}); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("decodeMeta err = %v, wanted ErrCorrupted", err)
	}
}
