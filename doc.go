/*
Package randlist serializes doubly-linked lists whose nodes carry an extra
“random” reference to any node of the same list, and makes deep copies of such
lists.

We implement:

1. Serialize/Deserialize, a streaming binary codec that preserves Next,
Previous and Random links, including cycles and self-references.

2. DeepCopy, an in-memory copy with the same topology and no shared nodes.

3. RecordWriter/RecordReader, the per-node codec underneath, usable on its own.

# Technical Details

**Identities.**
Nodes are numbered 1..N by reference in order of first encounter while walking
the list along Next. For every node we number the node itself, then its random
target, then its successor. Links are written as these numbers; 0 means nil.

**Buffering.**
Records go through one reusable buffer (DefaultBufferSize bytes). Text is
transcoded into the buffer incrementally and the buffer is written out whenever
less than 4 bytes (one UTF-8 character) remain free, and at the end of every
record. Peak memory is bounded by the buffer size, not by the list or payload
size.

## Binary encoding

All integers are little-endian int32.

**Stream**: list length, then that many records. No padding, checksums or
trailer.

**Record**:
1. Id (1..N).
2. Previous id (0 if none).
3. Next id (0 if none).
4. Random id (1..N).
5. Payload length in bytes.
6. Payload, UTF-8.

Records appear in Next order starting at the head, but decoders place nodes by
id, and the node with id 1 is the head.
*/
package randlist
