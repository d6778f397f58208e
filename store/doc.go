/*
Package store keeps named random-reference lists in a key-value database (Bolt
on disk, or memory for tests).

Each list is stored as its randlist wire form, optionally compressed with LZ4 or
zstd, in the “lists” bucket. The “meta” bucket holds a msgpack-encoded Meta per
list: node count, raw and stored sizes, compression tag, save time, and an
xxhash64 checksum of the uncompressed wire bytes. Get verifies the size and the
checksum and rejects trailing bytes, so a damaged blob fails with ErrCorrupted
instead of yielding a different list.
*/
package store
